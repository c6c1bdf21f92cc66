package strategy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/compliance"
	"github.com/kidsparis/activity-crawler/internal/extract"
	"github.com/kidsparis/activity-crawler/internal/fetch"
)

const orgPage = `<html><body>
<h2>Association Judo Paris</h2>
<p>Cours de judo pour enfants de 6 à 12 ans. contact@judoparis.fr</p>
<a href="/associations/escrime">Club d'escrime</a>
<a href="/mentions-legales">Mentions légales</a>
</body></html>`

const leafPage = `<html><body>
<h2>Association Escrime Bastille</h2>
<p>Escrime pour enfants dès 6 ans. club@escrime-bastille.fr</p>
</body></html>`

func testDeps(t *testing.T) Deps {
	t.Helper()
	guard := compliance.New(compliance.Config{
		UserAgents:    []string{"test-agent"},
		MinDelay:      time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		RespectRobots: false,
	}, nil)
	fetcher := fetch.New(
		fetch.NewStaticClient(5*time.Second), nil,
		fetch.NewRetryPolicy(1, time.Millisecond, time.Millisecond), nil, nil)
	return Deps{
		Guard:    guard,
		Fetcher:  fetcher,
		Engine:   extract.NewEngine(nil),
		Detector: &fetch.RenderDetector{},
	}
}

func zone20(t *testing.T) activity.Zone {
	t.Helper()
	z, ok := activity.ZoneByName("20e")
	require.True(t, ok)
	return z
}

func TestLocalityVisitsOnlyOfficialSeeds(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, orgPage)
	}))
	defer srv.Close()

	seeds := []activity.Seed{
		{URL: srv.URL + "/municipal", Priority: 0.8, Source: activity.SourceMunicipal},
		{URL: srv.URL + "/search-result", Priority: 0.6, Source: activity.SourceSearch},
		{URL: srv.URL + "/municipal", Priority: 0.8, Source: activity.SourceMunicipal},
	}

	s := NewLocality(testDeps(t), Config{MaxSources: 10, MaxURLs: 10})
	entities, errs := s.Run(context.Background(), zone20(t), seeds)

	assert.Empty(t, errs)
	assert.EqualValues(t, 1, hits.Load(), "search seeds and repeat URLs are not fetched")
	require.NotEmpty(t, entities)
	for _, e := range entities {
		assert.Equal(t, "20e", e.Zone)
	}
}

func TestIntelligentFollowsOrgLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, orgPage)
	})
	mux.HandleFunc("/associations/escrime", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, leafPage)
	})
	var legalHit atomic.Bool
	mux.HandleFunc("/mentions-legales", func(w http.ResponseWriter, _ *http.Request) {
		legalHit.Store(true)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	seeds := []activity.Seed{
		{URL: srv.URL + "/", Priority: 0.8, Source: activity.SourceMunicipal},
	}
	s := NewIntelligent(testDeps(t), Config{MaxSources: 10, MaxURLs: 10})
	entities, errs := s.Run(context.Background(), zone20(t), seeds)

	assert.Empty(t, errs)
	assert.False(t, legalHit.Load(), "boilerplate links are not followed")

	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "Judo Paris")
	assert.Contains(t, names, "Escrime Bastille")
}

func TestIntelligentSkipsDuplicateContent(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, leafPage)
	}))
	defer srv.Close()

	seeds := []activity.Seed{
		{URL: srv.URL + "/a", Priority: 0.8, Source: activity.SourceMunicipal},
		{URL: srv.URL + "/b", Priority: 0.8, Source: activity.SourceMunicipal},
	}
	s := NewIntelligent(testDeps(t), Config{MaxSources: 10, MaxURLs: 10})
	entities, errs := s.Run(context.Background(), zone20(t), seeds)

	assert.Empty(t, errs)
	assert.EqualValues(t, 2, hits.Load())

	count := 0
	for _, e := range entities {
		if e.Name == "Escrime Bastille" {
			count++
		}
	}
	assert.Equal(t, 1, count, "identical bodies extract once")
}

func TestAdvancedRespectsBudgetAndDepth(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		// Every page links to two more association pages.
		base := strings.TrimSuffix(r.URL.Path, "/")
		fmt.Fprintf(w, `<html><body>
<h2>Association Niveau %d</h2>
<p>Activités enfants. contact%d@asso.fr</p>
<a href="%s/a">Association suivante</a>
<a href="%s/b">Club suivant</a>
</body></html>`, n, n, base, base)
	}))
	defer srv.Close()

	seeds := []activity.Seed{
		{URL: srv.URL + "/", Priority: 0.8, Source: activity.SourceMunicipal},
	}

	s := NewAdvanced(testDeps(t), Config{MaxSources: 10, MaxDepth: 1, MaxURLs: 10})
	entities, errs := s.Run(context.Background(), zone20(t), seeds)

	assert.Empty(t, errs)
	assert.EqualValues(t, 3, hits.Load(), "depth 1 stops after the seed's direct links")
	assert.Len(t, entities, 3)
}

func TestAdvancedStopsAtMaxURLs(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `<html><body>
<h2>Association Numéro %d</h2>
<p>Activités enfants.</p>
<a href="%s/next">Association suivante</a>
</body></html>`, n, strings.TrimSuffix(r.URL.Path, "/"))
	}))
	defer srv.Close()

	seeds := []activity.Seed{
		{URL: srv.URL + "/", Priority: 0.8, Source: activity.SourceMunicipal},
	}
	s := NewAdvanced(testDeps(t), Config{MaxSources: 10, MaxDepth: 10, MaxURLs: 4})
	s.Run(context.Background(), zone20(t), seeds)

	assert.EqualValues(t, 4, hits.Load())
}

func TestFrontierOrdering(t *testing.T) {
	f := NewFrontier()
	f.Push(activity.Seed{URL: "low", Priority: 0.3}, 0)
	f.Push(activity.Seed{URL: "high", Priority: 0.9}, 0)
	f.Push(activity.Seed{URL: "mid-a", Priority: 0.6}, 0)
	f.Push(activity.Seed{URL: "mid-b", Priority: 0.6}, 1)

	var order []string
	for {
		seed, _, ok := f.Pop()
		if !ok {
			break
		}
		order = append(order, seed.URL)
	}
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, order)
}

func TestVisitedCanonicalization(t *testing.T) {
	v := NewVisited()
	assert.True(t, v.MarkURL("https://Example.FR/page#section"))
	assert.False(t, v.MarkURL("https://example.fr/page"))
	assert.True(t, v.MarkURL("https://example.fr/other"))

	assert.True(t, v.MarkContent([]byte("same body")))
	assert.False(t, v.MarkContent([]byte("same body")))
	assert.True(t, v.MarkContent([]byte("other body")))
}

func TestAdvancedSpacesSameDomainFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<h2>Association %s</h2>
<p>Activités enfants.</p>
</body></html>`, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	defer srv.Close()

	seeds := []activity.Seed{
		{URL: srv.URL + "/judo", Priority: 0.8, Source: activity.SourceMunicipal},
		{URL: srv.URL + "/escrime", Priority: 0.8, Source: activity.SourceMunicipal},
	}

	const delay = 60 * time.Millisecond
	s := NewAdvanced(testDeps(t), Config{MaxSources: 10, MaxURLs: 10, DomainDelay: delay})

	start := time.Now()
	_, errs := s.Run(context.Background(), zone20(t), seeds)
	assert.Empty(t, errs)
	assert.GreaterOrEqual(t, time.Since(start), delay,
		"the second fetch to a domain waits out the configured delay")
}
