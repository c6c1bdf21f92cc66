package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/clock"
	"github.com/kidsparis/activity-crawler/internal/compliance"
	"github.com/kidsparis/activity-crawler/internal/enrich"
	"github.com/kidsparis/activity-crawler/internal/extract"
	"github.com/kidsparis/activity-crawler/internal/fetch"
	"github.com/kidsparis/activity-crawler/internal/id"
	"github.com/kidsparis/activity-crawler/internal/store"
	"github.com/kidsparis/activity-crawler/internal/strategy"
	"github.com/kidsparis/activity-crawler/internal/validate"
)

type staticSeeder struct {
	seeds []activity.Seed
}

func (s staticSeeder) Seeds(context.Context, activity.Zone) []activity.Seed {
	return s.seeds
}

const directoryPage = `<html><body>
<h2>Association Judo Paris</h2>
<p>Association loi 1901. Cours de judo pour enfants de 6 à 12 ans au
gymnase des Pyrénées, adhésion 150 € par an.</p>
<p>Contact : contact@judoparis.fr ou 01 42 55 66 77, 12 rue des Pyrénées, 75020 Paris</p>
</body></html>`

const newsletterPage = `<html><head><title>Newsletter</title></head><body>
<h1>Abonnez-vous à notre newsletter</h1>
<p>Recevez nos offres chaque semaine.</p>
</body></html>`

func newTestOrchestrator(t *testing.T, seeds []activity.Seed, records store.RecordStore) *Orchestrator {
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

	deps := strategy.Deps{
		Guard:   guard,
		Fetcher: fetcher,
		Engine:  extract.NewEngine(nil),
	}
	return New(Params{
		Discoverer: staticSeeder{seeds: seeds},
		Strategies: NewStrategyFactory(deps, strategy.Config{MaxSources: 10, MaxURLs: 20}),
		Validator:  validate.New(validate.Config{AuthorityMinSignals: 2, ConfidenceFloor: 0.3}, nil),
		Deduper:    validate.NewDeduper(0.85, nil),
		Enricher:   enrich.New(nil, nil),
		Records:    records,
		IDs:        &id.Sequence{Prefix: "rec"},
		Clock:      clock.Fixed{T: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)},
	})
}

func TestRunEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/annuaire":
			fmt.Fprint(w, directoryPage)
		case "/newsletter":
			fmt.Fprint(w, newsletterPage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	records := store.NewMemory()
	o := newTestOrchestrator(t, []activity.Seed{
		{URL: srv.URL + "/annuaire", Priority: 0.8, Source: activity.SourceMunicipal},
		{URL: srv.URL + "/newsletter", Priority: 0.8, Source: activity.SourceMunicipal},
	}, records)

	result, err := o.Run(context.Background(), Options{Zone: "20e"})
	require.NoError(t, err)

	require.Len(t, result.Entities, 1, "the newsletter page contributes nothing")
	e := result.Entities[0]
	assert.Equal(t, "Judo Paris", e.Name)
	assert.Equal(t, "contact@judoparis.fr", e.Email)
	assert.Equal(t, "01 42 55 66 77", e.Phone)
	assert.Equal(t, []string{"sport"}, e.Categories)
	assert.Equal(t, &activity.AgeRange{Min: 6, Max: 12}, e.AgeRange)
	assert.Equal(t, "20e", e.Zone)
	assert.True(t, e.Validation.Valid)
	assert.GreaterOrEqual(t, e.Validation.Score, 2)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "Judo Paris", rec.Title.FR)
	assert.Equal(t, activity.ApprovalPending, rec.ApprovalState)
	assert.Equal(t, "20e", rec.Neighborhood)

	stored, err := records.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, rec, stored)

	assert.Equal(t, 2, result.Stats.Seeds)
	assert.Equal(t, 1, result.Stats.Valid)
	assert.Equal(t, 1, result.Stats.Stored)
}

func TestRunUnknownZone(t *testing.T) {
	o := newTestOrchestrator(t, nil, store.NewMemory())
	_, err := o.Run(context.Background(), Options{Zone: "21e"})
	assert.Error(t, err)
}

func TestRunUnknownStrategy(t *testing.T) {
	o := newTestOrchestrator(t, nil, store.NewMemory())
	_, err := o.Run(context.Background(), Options{Zone: "20e", Strategy: "bogus"})
	assert.Error(t, err)
}

func TestRunCollectsFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, []activity.Seed{
		{URL: srv.URL + "/missing", Priority: 0.8, Source: activity.SourceMunicipal},
	}, store.NewMemory())

	result, err := o.Run(context.Background(), Options{Zone: "20e"})
	require.NoError(t, err, "fetch failures do not abort the run")
	assert.Empty(t, result.Entities)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "fetch", result.Errors[0].Stage)
}

func TestRunSkipsRejectedEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, directoryPage)
	}))
	defer srv.Close()

	rejections := store.NewRejectionList()
	rejections.Add("Judo Paris", "")

	records := store.NewMemory()
	o := newTestOrchestrator(t, []activity.Seed{
		{URL: srv.URL + "/annuaire", Priority: 0.8, Source: activity.SourceMunicipal},
	}, records)
	o.rejections = rejections

	result, err := o.Run(context.Background(), Options{Zone: "20e"})
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Records)
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, directoryPage)
	}))
	defer srv.Close()

	records := store.NewMemory()
	o := newTestOrchestrator(t, []activity.Seed{
		{URL: srv.URL + "/a", Priority: 0.8, Source: activity.SourceMunicipal},
		{URL: srv.URL + "/b", Priority: 0.8, Source: activity.SourceMunicipal},
	}, records)

	result, err := o.Run(context.Background(), Options{Zone: "20e"})
	require.NoError(t, err)
	assert.Len(t, result.Entities, 1, "the same organization on two pages stores once")
	assert.Len(t, result.Records, 1)
}

func TestRunHydratesRejectionsFromStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, directoryPage)
	}))
	defer srv.Close()

	records := store.NewMemory()
	require.NoError(t, records.AddRejection(context.Background(), "Judo Paris", ""))

	o := newTestOrchestrator(t, []activity.Seed{
		{URL: srv.URL + "/annuaire", Priority: 0.8, Source: activity.SourceMunicipal},
	}, records)
	o.rejectionSrc = records

	result, err := o.Run(context.Background(), Options{Zone: "20e"})
	require.NoError(t, err)
	assert.Empty(t, result.Entities, "a stored rejection filters the entity")
	assert.Empty(t, result.Records)
}

func TestRunSkipsEntitiesWithExistingRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, directoryPage)
	}))
	defer srv.Close()

	records := store.NewMemory()
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, records.Create(context.Background(),
		activity.NewRecord("rec-old", activity.Entity{Name: "Judo Paris"}, now)))

	o := newTestOrchestrator(t, []activity.Seed{
		{URL: srv.URL + "/annuaire", Priority: 0.8, Source: activity.SourceMunicipal},
	}, records)

	result, err := o.Run(context.Background(), Options{Zone: "20e"})
	require.NoError(t, err)
	assert.Empty(t, result.Records, "an entity with a record already is not resubmitted")

	stored, err := records.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
