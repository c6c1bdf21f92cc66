// Package publisher emits job lifecycle events for downstream consumers
// such as the review dashboard.
package publisher

import (
	"context"
	"sync"
	"time"
)

// Event describes one job state transition.
type Event struct {
	JobID    string    `json:"job_id"`
	Zone     string    `json:"zone"`
	Status   string    `json:"status"`
	Records  int       `json:"records"`
	Error    string    `json:"error,omitempty"`
	EmitTime time.Time `json:"emit_time"`
}

// Publisher delivers job events. Publishing is best effort; a failed
// event never fails the job it describes.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Memory collects events in process, used in tests and when no broker
// is configured.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a snapshot of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *Memory) Close() error { return nil }
