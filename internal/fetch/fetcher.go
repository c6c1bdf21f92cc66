package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/logging"
)

// ErrRendererUnavailable is returned by renderers that are not configured.
var ErrRendererUnavailable = errors.New("headless renderer unavailable")

// Renderer is the optional headless-rendering capability. Its absence is
// modeled by a no-op implementation, never by nil checks at call sites.
type Renderer interface {
	Render(ctx context.Context, url string, userAgent string, headers http.Header) (RenderResult, error)
}

// RenderResult is a rendered page ready for document parsing.
type RenderResult struct {
	HTML       string
	FinalURL   string
	StatusCode int
}

// Archiver persists raw fetched bodies. Archiving is best effort and
// never fails a fetch.
type Archiver interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Options adjust a single fetch.
type Options struct {
	UserAgent string
	Headers   http.Header
	Render    bool // try the headless path first, fall back to static
}

// Fetcher retrieves documents with retry, backoff, and render fallback.
type Fetcher struct {
	static   *StaticClient
	renderer Renderer
	retry    *RetryPolicy
	archive  Archiver
	logger   *zap.Logger
}

// New builds a Fetcher. renderer and archive may be nil.
func New(static *StaticClient, renderer Renderer, retry *RetryPolicy, archive Archiver, logger *zap.Logger) *Fetcher {
	if retry == nil {
		retry = NewRetryPolicy(0, 0, 0)
	}
	return &Fetcher{
		static:   static,
		renderer: renderer,
		retry:    retry,
		archive:  archive,
		logger:   logging.OrNop(logger),
	}
}

// Fetch retrieves url and returns the parsed document. 5xx and transport
// errors are retried with exponential backoff; 4xx responses are not.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (*Document, error) {
	if opts.Render && f.renderer != nil {
		doc, err := f.fetchRendered(ctx, url, opts)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		f.logger.Debug("render failed, falling back to static fetch",
			zap.String("url", url), zap.Error(err))
	}
	return f.fetchStatic(ctx, url, opts)
}

func (f *Fetcher) fetchStatic(ctx context.Context, url string, opts Options) (*Document, error) {
	var lastErr error
	for attempt := 0; attempt < f.retry.MaxAttempts(); attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, f.retry.Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}
		resp, err := f.static.Get(ctx, url, opts.UserAgent, opts.Headers)
		if err == nil {
			doc, parseErr := ParseDocument(url, resp.FinalURL, resp.StatusCode, resp.ContentType, resp.Body, false)
			if parseErr != nil {
				return nil, parseErr
			}
			doc.Duration = resp.Duration
			f.archiveBody(ctx, url, resp.ContentType, resp.Body)
			return doc, nil
		}
		lastErr = err
		if !f.retry.ShouldRetry(err, attempt+1) {
			break
		}
		f.logger.Debug("retrying fetch",
			zap.String("url", url), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (f *Fetcher) fetchRendered(ctx context.Context, url string, opts Options) (*Document, error) {
	start := time.Now()
	res, err := f.renderer.Render(ctx, url, opts.UserAgent, opts.Headers)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(url, res.FinalURL, res.StatusCode, "text/html", []byte(res.HTML), true)
	if err != nil {
		return nil, err
	}
	doc.Duration = time.Since(start)
	f.archiveBody(ctx, url, "text/html", []byte(res.HTML))
	return doc, nil
}

func (f *Fetcher) archiveBody(ctx context.Context, url, contentType string, body []byte) {
	if f.archive == nil || len(body) == 0 {
		return
	}
	key := archiveKey(url)
	if _, err := f.archive.PutObject(ctx, key, contentType, bytes.NewReader(body)); err != nil {
		f.logger.Warn("archive page failed", zap.String("url", url), zap.Error(err))
	}
}

// archiveKey derives a stable object path from the URL.
func archiveKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "pages/" + hex.EncodeToString(sum[:])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
