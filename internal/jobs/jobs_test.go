package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsparis/activity-crawler/internal/id"
	"github.com/kidsparis/activity-crawler/internal/orchestrator"
	"github.com/kidsparis/activity-crawler/internal/publisher"
)

type stubRunner struct {
	delay  time.Duration
	err    error
	panics bool
	calls  atomic.Int64

	mu    sync.Mutex
	zones []string
}

func (r *stubRunner) Run(ctx context.Context, opts orchestrator.Options) (*orchestrator.RunResult, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.zones = append(r.zones, opts.Zone)
	r.mu.Unlock()
	if r.panics {
		panic("boom")
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &orchestrator.RunResult{Zone: opts.Zone, Strategy: "locality"}, nil
}

func (r *stubRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.zones...)
}

func newTestManager(cfg Config, runner Runner, events publisher.Publisher) *Manager {
	return NewManager(cfg, runner, events, &id.Sequence{Prefix: "job"}, nil, nil)
}

func waitTerminal(t *testing.T, m *Manager, jobID string) Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		job, ok := m.Get(jobID)
		require.True(t, ok)
		if job.Status.Terminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s stuck in %s", jobID, job.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartJobReturnsImmediately(t *testing.T) {
	runner := &stubRunner{delay: 50 * time.Millisecond}
	m := newTestManager(Config{}, runner, nil)
	defer m.Close()

	start := time.Now()
	job, err := m.StartJob(Options{Zones: []string{"20e"}})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, "job-1", job.ID)

	final := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	require.Len(t, final.Results, 1)
	assert.Equal(t, "20e", final.Results[0].Zone)
	assert.False(t, final.FinishedAt.IsZero())
}

func TestStartJobRequiresZones(t *testing.T) {
	m := newTestManager(Config{}, &stubRunner{}, nil)
	defer m.Close()

	_, err := m.StartJob(Options{})
	require.Error(t, err)
}

func TestMultiZoneJobRunsSequentially(t *testing.T) {
	runner := &stubRunner{}
	m := newTestManager(Config{}, runner, nil)
	defer m.Close()

	job, err := m.StartJob(Options{Zones: []string{"11e", "20e", "12e"}})
	require.NoError(t, err)

	final := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, []string{"11e", "20e", "12e"}, runner.seen(), "zones crawl in order")
	require.Len(t, final.Results, 3, "one result per zone")
	assert.Equal(t, "11e", final.Results[0].Zone)
	assert.Equal(t, "done", final.Progress.Stage)
	assert.Equal(t, 100, final.Progress.Percent)
}

func TestProgressAdvancesPerZone(t *testing.T) {
	runner := &stubRunner{delay: 30 * time.Millisecond}
	m := newTestManager(Config{}, runner, nil)
	defer m.Close()

	job, err := m.StartJob(Options{Zones: []string{"11e", "20e"}})
	require.NoError(t, err)

	var sawPartial bool
	deadline := time.After(5 * time.Second)
	for {
		snapshot, ok := m.Get(job.ID)
		require.True(t, ok)
		if p := snapshot.Progress.Percent; p > 0 && p < 100 {
			sawPartial = true
		}
		if snapshot.Status.Terminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job never finished")
		case <-time.After(2 * time.Millisecond):
		}
	}
	assert.True(t, sawPartial, "progress percent must advance between zones")
}

func TestJobFailureIsRecorded(t *testing.T) {
	runner := &stubRunner{err: errors.New("zone offline")}
	m := newTestManager(Config{}, runner, nil)
	defer m.Close()

	job, err := m.StartJob(Options{Zones: []string{"20e"}})
	require.NoError(t, err)

	final := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "zone offline")
	assert.Equal(t, "failed", final.Progress.Stage)
}

func TestJobPanicBecomesFailure(t *testing.T) {
	runner := &stubRunner{panics: true}
	m := newTestManager(Config{}, runner, nil)
	defer m.Close()

	job, err := m.StartJob(Options{Zones: []string{"20e"}})
	require.NoError(t, err)

	final := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "panic")
}

func TestWatchdogCancelsStalledJob(t *testing.T) {
	runner := &stubRunner{delay: time.Minute}
	m := newTestManager(Config{Watchdog: 20 * time.Millisecond}, runner, nil)
	defer m.Close()

	job, err := m.StartJob(Options{Zones: []string{"20e"}})
	require.NoError(t, err)

	final := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "deadline")
}

func TestWatchdogResetsOnProgress(t *testing.T) {
	// Each zone finishes well inside the window, so the whole job may
	// outlast the watchdog as long as progress keeps arriving.
	runner := &stubRunner{delay: 20 * time.Millisecond}
	m := newTestManager(Config{Watchdog: 80 * time.Millisecond}, runner, nil)
	defer m.Close()

	job, err := m.StartJob(Options{Zones: []string{"1er", "2e", "3e", "4e", "5e", "6e"}})
	require.NoError(t, err)

	final := waitTerminal(t, m, job.ID)
	assert.Equal(t, StatusCompleted, final.Status,
		"per-zone progress must keep a healthy job alive past the watchdog window")
	assert.Len(t, final.Results, 6)
}

func TestListNewestFirstAndHistoryCap(t *testing.T) {
	runner := &stubRunner{}
	m := newTestManager(Config{History: 2}, runner, nil)
	defer m.Close()

	var ids []string
	for range 3 {
		job, err := m.StartJob(Options{Zones: []string{"20e"}})
		require.NoError(t, err)
		ids = append(ids, job.ID)
		waitTerminal(t, m, job.ID)
	}

	list := m.List()
	require.Len(t, list, 2, "history cap evicts the oldest finished job")
	assert.Equal(t, ids[2], list[0].ID, "newest first")
	assert.Equal(t, ids[1], list[1].ID)

	_, ok := m.Get(ids[0])
	assert.False(t, ok)
}

func TestJobEventsPublished(t *testing.T) {
	events := publisher.NewMemory()
	m := newTestManager(Config{}, &stubRunner{}, events)
	defer m.Close()

	job, err := m.StartJob(Options{Zones: []string{"11e", "20e"}})
	require.NoError(t, err)
	waitTerminal(t, m, job.ID)
	m.Close()

	var statuses []string
	for _, ev := range events.Events() {
		if ev.JobID == job.ID {
			statuses = append(statuses, ev.Status)
			assert.Equal(t, "11e,20e", ev.Zone)
		}
	}
	assert.Equal(t, []string{"queued", "running", "completed"}, statuses)
}
