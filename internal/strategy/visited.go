package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"sync"
)

// Visited tracks URLs and content hashes seen within one run.
type Visited struct {
	urls   sync.Map
	hashes sync.Map
}

func NewVisited() *Visited {
	return &Visited{}
}

// MarkURL records the URL and reports whether it was new. URLs are
// canonicalized so fragment and trivial host variants do not refetch.
func (v *Visited) MarkURL(rawURL string) bool {
	_, loaded := v.urls.LoadOrStore(canonicalURL(rawURL), struct{}{})
	return !loaded
}

// MarkContent records a page body hash and reports whether the content
// was new. Mirrored pages on different URLs collapse here.
func (v *Visited) MarkContent(body []byte) bool {
	sum := sha256.Sum256(body)
	_, loaded := v.hashes.LoadOrStore(hex.EncodeToString(sum[:]), struct{}{})
	return !loaded
}

func canonicalURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
