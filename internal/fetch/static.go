package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// staticResponse is the raw result of one static HTTP GET.
type staticResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
	FinalURL    string
	Duration    time.Duration
}

// StaticClient performs single-page GETs through a Colly collector.
// Robots handling is left off: the compliance guard gates every URL
// before it reaches the fetcher.
type StaticClient struct {
	base    *colly.Collector
	timeout time.Duration
}

// NewStaticClient builds a StaticClient with pooled transport.
func NewStaticClient(timeout time.Duration) *StaticClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Retries and render refetches hit the same URL again; without this
	// the shared visit storage rejects the second attempt.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &StaticClient{
		base:    c,
		timeout: timeout,
	}
}

// Get fetches one URL. Non-2xx responses return a *StatusError.
func (c *StaticClient) Get(ctx context.Context, url, userAgent string, headers http.Header) (staticResponse, error) {
	var (
		result   staticResponse
		fetchErr error
	)
	start := time.Now()

	collector := c.base.Clone()
	if userAgent != "" {
		collector.UserAgent = userAgent
	}
	collector.SetRequestTimeout(c.timeout)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = staticResponse{
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        append([]byte(nil), r.Body...),
			FinalURL:    r.Request.URL.String(),
			Duration:    time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = &StatusError{Code: r.StatusCode, URL: url}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return staticResponse{}, fmt.Errorf("static fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return staticResponse{}, fetchErr
		}
		if err != nil {
			return staticResponse{}, fmt.Errorf("visit %s: %w", url, err)
		}
		return result, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
