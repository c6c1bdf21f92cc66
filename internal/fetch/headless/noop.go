package headless

import (
	"context"
	"net/http"

	"github.com/kidsparis/activity-crawler/internal/fetch"
)

// Noop implements fetch.Renderer for builds without a browser. Every call
// fails with fetch.ErrRendererUnavailable so callers degrade to the
// static path.
type Noop struct{}

// NewNoop creates a Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render always reports the renderer as unavailable.
func (Noop) Render(_ context.Context, _ string, _ string, _ http.Header) (fetch.RenderResult, error) {
	return fetch.RenderResult{}, fetch.ErrRendererUnavailable
}
