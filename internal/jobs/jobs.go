// Package jobs runs crawls in the background and tracks their
// lifecycle for the API.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/clock"
	"github.com/kidsparis/activity-crawler/internal/id"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/metrics"
	"github.com/kidsparis/activity-crawler/internal/orchestrator"
	"github.com/kidsparis/activity-crawler/internal/publisher"
)

// Status is a job lifecycle state.
type Status string

// Job states. Every job ends in completed or failed; the watchdog
// guarantees no job stays running forever.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Options selects what a job crawls. Zones are crawled sequentially in
// the order given.
type Options struct {
	Zones    []string `json:"zones"`
	Strategy string   `json:"strategy,omitempty"`
}

// Progress reports how far along a running job is.
type Progress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// Job is one crawl run and its outcome. Results holds one entry per
// finished zone, in crawl order.
type Job struct {
	ID         string                    `json:"id"`
	Zones      []string                  `json:"zones"`
	Strategy   string                    `json:"strategy,omitempty"`
	Status     Status                    `json:"status"`
	Progress   Progress                  `json:"progress"`
	Error      string                    `json:"error,omitempty"`
	Results    []*orchestrator.RunResult `json:"results,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// Records sums the stored records across all finished zones.
func (j Job) Records() int {
	n := 0
	for _, r := range j.Results {
		n += len(r.Records)
	}
	return n
}

// Runner executes one zone crawl; *orchestrator.Orchestrator is the
// production implementation.
type Runner interface {
	Run(ctx context.Context, opts orchestrator.Options) (*orchestrator.RunResult, error)
}

// Config tunes the manager.
type Config struct {
	// Watchdog bounds how long a job may go without a progress update;
	// a stalled job is canceled and fails instead of hanging in running.
	Watchdog time.Duration
	// History caps how many finished jobs stay queryable.
	History int
}

// Manager starts jobs and answers status queries. All methods are safe
// for concurrent use.
type Manager struct {
	cfg    Config
	runner Runner
	events publisher.Publisher
	ids    id.Generator
	clock  clock.Clock
	logger *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // newest first
}

func NewManager(cfg Config, runner Runner, events publisher.Publisher, ids id.Generator, clk clock.Clock, logger *zap.Logger) *Manager {
	if cfg.Watchdog <= 0 {
		cfg.Watchdog = 15 * time.Minute
	}
	if cfg.History <= 0 {
		cfg.History = 100
	}
	if ids == nil {
		ids = id.UUID{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if events == nil {
		events = publisher.NewMemory()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:     cfg,
		runner:  runner,
		events:  events,
		ids:     ids,
		clock:   clk,
		logger:  logging.OrNop(logger),
		baseCtx: ctx,
		cancel:  cancel,
		jobs:    make(map[string]*Job),
	}
}

// StartJob registers a job and returns immediately; the crawl runs in a
// goroutine watched for progress staleness.
func (m *Manager) StartJob(opts Options) (Job, error) {
	if len(opts.Zones) == 0 {
		return Job{}, fmt.Errorf("job needs at least one zone")
	}
	jobID, err := m.ids.NewID()
	if err != nil {
		return Job{}, fmt.Errorf("job id: %w", err)
	}

	job := &Job{
		ID:        jobID,
		Zones:     append([]string(nil), opts.Zones...),
		Strategy:  opts.Strategy,
		Status:    StatusQueued,
		Progress:  Progress{Stage: "queued", Message: "waiting to start"},
		CreatedAt: m.clock.Now(),
	}

	m.mu.Lock()
	m.jobs[jobID] = job
	m.order = append([]string{jobID}, m.order...)
	m.trimLocked()
	m.mu.Unlock()

	metrics.ObserveJob(string(StatusQueued))
	m.publish(*job)

	m.wg.Add(1)
	go m.execute(jobID)
	return *job, nil
}

// Get returns a snapshot of one job.
func (m *Manager) Get(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all known jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.order))
	for _, jobID := range m.order {
		if job, ok := m.jobs[jobID]; ok {
			out = append(out, *job)
		}
	}
	return out
}

// Close stops accepting work and waits for running jobs to finish.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) execute(jobID string) {
	defer m.wg.Done()

	ctx, cancel := context.WithCancel(m.baseCtx)
	defer cancel()

	// The watchdog fires when no progress update lands within the
	// window; each per-zone update resets it.
	var stalled atomic.Bool
	watchdog := time.AfterFunc(m.cfg.Watchdog, func() {
		stalled.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	m.transition(jobID, func(job *Job) {
		job.Status = StatusRunning
		job.StartedAt = m.clock.Now()
		job.Progress = Progress{Stage: "crawl", Message: "starting"}
	})
	metrics.IncActiveJobs()
	defer metrics.DecActiveJobs()

	zones, strategyName := m.plan(jobID)
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
				m.logger.Error("job panicked",
					zap.String("job_id", jobID), zap.Any("panic", r))
			}
		}()
		for i, zone := range zones {
			m.updateProgress(jobID, watchdog, Progress{
				Stage:   "crawl",
				Message: fmt.Sprintf("crawling %s", zone),
				Percent: i * 100 / len(zones),
			})
			result, err := m.runner.Run(ctx, orchestrator.Options{
				Zone:     zone,
				Strategy: strategyName,
			})
			if result != nil {
				m.appendResult(jobID, result)
			}
			if err != nil {
				runErr = fmt.Errorf("zone %s: %w", zone, err)
				return
			}
			m.updateProgress(jobID, watchdog, Progress{
				Stage:   "crawl",
				Message: fmt.Sprintf("finished %s", zone),
				Percent: (i + 1) * 100 / len(zones),
			})
		}
	}()

	if runErr != nil && stalled.Load() {
		runErr = fmt.Errorf("watchdog deadline: no progress within %s: %w",
			m.cfg.Watchdog, runErr)
	}

	m.transition(jobID, func(job *Job) {
		job.FinishedAt = m.clock.Now()
		if runErr != nil {
			job.Status = StatusFailed
			job.Error = runErr.Error()
			job.Progress.Stage = "failed"
			job.Progress.Message = runErr.Error()
		} else {
			job.Status = StatusCompleted
			job.Progress = Progress{Stage: "done", Message: "all zones crawled", Percent: 100}
		}
	})
}

func (m *Manager) plan(jobID string) ([]string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[jobID]; ok {
		return job.Zones, job.Strategy
	}
	return nil, ""
}

// updateProgress records progress and feeds the watchdog. Progress
// changes are visible through GetStatus but do not emit events.
func (m *Manager) updateProgress(jobID string, watchdog *time.Timer, p Progress) {
	watchdog.Reset(m.cfg.Watchdog)
	m.mu.Lock()
	if job, ok := m.jobs[jobID]; ok {
		job.Progress = p
	}
	m.mu.Unlock()
}

func (m *Manager) appendResult(jobID string, result *orchestrator.RunResult) {
	m.mu.Lock()
	if job, ok := m.jobs[jobID]; ok {
		job.Results = append(job.Results, result)
	}
	m.mu.Unlock()
}

// transition applies a state change and emits the event outside the lock.
func (m *Manager) transition(jobID string, apply func(*Job)) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return
	}
	apply(job)
	snapshot := *job
	m.mu.Unlock()

	metrics.ObserveJob(string(snapshot.Status))
	m.publish(snapshot)
}

func (m *Manager) publish(job Job) {
	ev := publisher.Event{
		JobID:    job.ID,
		Zone:     strings.Join(job.Zones, ","),
		Status:   string(job.Status),
		Records:  job.Records(),
		Error:    job.Error,
		EmitTime: m.clock.Now(),
	}
	if err := m.events.Publish(context.Background(), ev); err != nil {
		m.logger.Warn("job event publish failed",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}

// trimLocked drops the oldest finished jobs beyond the history cap.
// Running jobs are never evicted.
func (m *Manager) trimLocked() {
	if len(m.order) <= m.cfg.History {
		return
	}
	kept := make([]string, 0, m.cfg.History)
	for i, jobID := range m.order {
		job := m.jobs[jobID]
		if i < m.cfg.History || (job != nil && !job.Status.Terminal()) {
			kept = append(kept, jobID)
			continue
		}
		delete(m.jobs, jobID)
	}
	m.order = kept
}
