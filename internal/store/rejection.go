package store

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// RejectionStore persists reviewer rejections across runs. Memory and
// Postgres both implement it.
type RejectionStore interface {
	Rejections(ctx context.Context) (names, websites []string, err error)
	AddRejection(ctx context.Context, name, website string) error
}

// RejectionList remembers entities a reviewer has refused so later runs
// do not resubmit them. Matching is by normalized name or website.
type RejectionList struct {
	mu       sync.RWMutex
	names    map[string]struct{}
	websites map[string]struct{}
}

func NewRejectionList() *RejectionList {
	return &RejectionList{
		names:    make(map[string]struct{}),
		websites: make(map[string]struct{}),
	}
}

// Add marks an entity as rejected.
func (r *RejectionList) Add(name, website string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key := normalizeName(name); key != "" {
		r.names[key] = struct{}{}
	}
	if key := normalizeWebsite(website); key != "" {
		r.websites[key] = struct{}{}
	}
}

// Rejected reports whether the entity matches a prior rejection.
func (r *RejectionList) Rejected(e activity.Entity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key := normalizeName(e.Name); key != "" {
		if _, hit := r.names[key]; hit {
			return true
		}
	}
	if key := normalizeWebsite(e.Website); key != "" {
		if _, hit := r.websites[key]; hit {
			return true
		}
	}
	return false
}

// RejectedURL reports whether a discovered URL matches a rejected website.
func (r *RejectionList) RejectedURL(rawURL string) bool {
	key := normalizeWebsite(rawURL)
	if key == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, hit := r.websites[key]
	return hit
}

// Load replaces the list contents, used when hydrating from storage.
func (r *RejectionList) Load(names, websites []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = make(map[string]struct{}, len(names))
	for _, n := range names {
		if key := normalizeName(n); key != "" {
			r.names[key] = struct{}{}
		}
	}
	r.websites = make(map[string]struct{}, len(websites))
	for _, w := range websites {
		if key := normalizeWebsite(w); key != "" {
			r.websites[key] = struct{}{}
		}
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizeWebsite strips the scheme, a www prefix, and any trailing
// slash so equivalent URLs compare equal.
func normalizeWebsite(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if u, err := url.Parse(website); err == nil && u.Host != "" {
		website = u.Host + u.Path
	}
	website = strings.TrimPrefix(strings.ToLower(website), "www.")
	return strings.TrimSuffix(website, "/")
}
