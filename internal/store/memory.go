package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Memory is an in-process RecordStore used in tests and single-node
// runs without a database.
type Memory struct {
	mu        sync.RWMutex
	records   map[string]activity.Record
	rejection []rejectionRow
}

type rejectionRow struct {
	name    string
	website string
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]activity.Record)}
}

func (m *Memory) List(context.Context) ([]activity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]activity.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (activity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return activity.Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) Create(_ context.Context, rec activity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *Memory) Update(_ context.Context, rec activity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return ErrNotFound
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) Rejections(context.Context) ([]string, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.rejection))
	websites := make([]string, 0, len(m.rejection))
	for _, row := range m.rejection {
		if row.name != "" {
			names = append(names, row.name)
		}
		if row.website != "" {
			websites = append(websites, row.website)
		}
	}
	return names, websites, nil
}

func (m *Memory) AddRejection(_ context.Context, name, website string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejection = append(m.rejection, rejectionRow{name: name, website: website})
	return nil
}

func (m *Memory) Close() error { return nil }
