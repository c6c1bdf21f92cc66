// Package fetch retrieves documents over HTTP with retries, content-type
// dispatch, and an optional headless rendering path.
package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// Kind classifies a fetched document for extraction dispatch.
type Kind string

// Document kinds.
const (
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
	KindJSON Kind = "json"
)

// Document is the engine-agnostic result of a fetch. Static and rendered
// fetches both converge to this shape so extraction never cares which
// path produced it.
type Document struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Kind        Kind
	Body        []byte
	HTML        *goquery.Document // set for KindHTML
	Text        string            // set for KindPDF
	JSON        any               // set for KindJSON
	Rendered    bool
	Duration    time.Duration
}

// ParseDocument builds a Document from a raw response body.
func ParseDocument(rawURL, finalURL string, status int, contentType string, body []byte, rendered bool) (*Document, error) {
	doc := &Document{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  status,
		ContentType: contentType,
		Body:        body,
		Rendered:    rendered,
	}
	switch detectKind(contentType, body) {
	case KindPDF:
		doc.Kind = KindPDF
		text, err := extractPDFText(body)
		if err != nil {
			return nil, fmt.Errorf("extract pdf text from %s: %w", rawURL, err)
		}
		doc.Text = text
	case KindJSON:
		doc.Kind = KindJSON
		var value any
		if err := json.Unmarshal(body, &value); err != nil {
			return nil, fmt.Errorf("parse json from %s: %w", rawURL, err)
		}
		doc.JSON = value
	default:
		doc.Kind = KindHTML
		tree, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse html from %s: %w", rawURL, err)
		}
		doc.HTML = tree
	}
	return doc, nil
}

// detectKind prefers the Content-Type header; anything unrecognized is
// treated as HTML. A leading %PDF magic wins over a missing header.
func detectKind(contentType string, body []byte) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return KindPDF
	case strings.Contains(ct, "application/json"):
		return KindJSON
	case ct == "" && bytes.HasPrefix(body, []byte("%PDF")):
		return KindPDF
	default:
		return KindHTML
	}
}

func extractPDFText(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("drain pdf text: %w", err)
	}
	return string(text), nil
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Code)
}

// Retryable reports whether the status indicates a transient server fault.
func (e *StatusError) Retryable() bool {
	return e.Code >= http.StatusInternalServerError
}
