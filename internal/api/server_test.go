package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsparis/activity-crawler/internal/id"
	"github.com/kidsparis/activity-crawler/internal/jobs"
	"github.com/kidsparis/activity-crawler/internal/orchestrator"
	"github.com/kidsparis/activity-crawler/internal/store"
)

type fakeRunner struct{}

func (fakeRunner) Run(_ context.Context, opts orchestrator.Options) (*orchestrator.RunResult, error) {
	return &orchestrator.RunResult{Zone: opts.Zone, Strategy: "locality"}, nil
}

func newTestServer(t *testing.T) (*Server, *jobs.Manager) {
	t.Helper()
	manager := jobs.NewManager(jobs.Config{}, fakeRunner{}, nil, &id.Sequence{Prefix: "job"}, nil, nil)
	t.Cleanup(manager.Close)
	return NewServer(Config{Addr: ":0"}, manager, store.NewMemory(), nil), manager
}

func TestCreateJob(t *testing.T) {
	srv, manager := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs",
		strings.NewReader(`{"zones":["11e","20e"],"strategy":"locality"}`))
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var job jobs.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, []string{"11e", "20e"}, job.Zones)

	deadline := time.After(2 * time.Second)
	for {
		got, ok := manager.Get(job.ID)
		require.True(t, ok)
		if got.Status.Terminal() {
			assert.Equal(t, jobs.StatusCompleted, got.Status)
			break
		}
		select {
		case <-deadline:
			t.Fatal("job did not finish")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCreateJobRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`{"zones":["21e"]}`))
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`{"strategy":"locality"}`))
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "zones are required")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`not json`))
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListJobs(t *testing.T) {
	srv, manager := newTestServer(t)

	_, err := manager.StartJob(jobs.Options{Zones: []string{"11e"}})
	require.NoError(t, err)
	_, err = manager.StartJob(jobs.Options{Zones: []string{"20e"}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	require.Len(t, payload.Jobs, 2)
	assert.Equal(t, []string{"20e"}, payload.Jobs[0].Zones, "newest first")
}

func TestJobStatus(t *testing.T) {
	srv, manager := newTestServer(t)

	job, err := manager.StartJob(jobs.Options{Zones: []string{"20e"}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/v1/jobs/"+job.ID+"/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got jobs.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, job.ID, got.ID)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/v1/jobs/missing/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCreateJobSingleZoneShorthand(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`{"zone":"20e"}`))
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job jobs.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, []string{"20e"}, job.Zones)
}

func TestAddRejection(t *testing.T) {
	manager := jobs.NewManager(jobs.Config{}, fakeRunner{}, nil, &id.Sequence{Prefix: "job"}, nil, nil)
	t.Cleanup(manager.Close)
	rejections := store.NewMemory()
	srv := NewServer(Config{Addr: ":0"}, manager, rejections, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/rejections",
		strings.NewReader(`{"name":"Club Fantôme","website":"https://fantome.fr"}`))
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	names, websites, err := rejections.Rejections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Club Fantôme"}, names)
	assert.Equal(t, []string{"https://fantome.fr"}, websites)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/rejections", strings.NewReader(`{}`))
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
