package fetch

import (
	"bytes"
	"strings"
)

// RenderDetector decides when a static fetch looks too thin and should be
// retried with the headless renderer.
type RenderDetector struct {
	BodyLengthThreshold int
}

// NewRenderDetector creates a detector; threshold 0 uses the default.
func NewRenderDetector(threshold int) *RenderDetector {
	if threshold == 0 {
		threshold = 2048
	}
	return &RenderDetector{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// ShouldRender reports whether the body looks like a JavaScript shell.
func (d *RenderDetector) ShouldRender(doc *Document) bool {
	if doc == nil || doc.Kind != KindHTML || doc.Rendered {
		return false
	}
	body := doc.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < d.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether script tags cover at least a quarter
// of the document.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1
		relEnd := strings.Index(lower[contentStart:], closeTag)
		var next int
		if relEnd == -1 {
			next = total
		} else {
			next = contentStart + relEnd + len(closeTag)
		}
		coverage += next - start
		pos = next
	}
	if coverage == 0 {
		return false
	}
	return coverage*100/total >= 25
}
