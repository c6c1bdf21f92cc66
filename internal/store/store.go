// Package store persists crawl records and the rejection list.
package store

import (
	"context"
	"errors"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// ErrNotFound reports a lookup for a record that does not exist.
var ErrNotFound = errors.New("store: record not found")

// RecordStore persists accepted crawl records.
type RecordStore interface {
	List(ctx context.Context) ([]activity.Record, error)
	Get(ctx context.Context, id string) (activity.Record, error)
	Create(ctx context.Context, rec activity.Record) error
	Update(ctx context.Context, rec activity.Record) error
	Remove(ctx context.Context, id string) error
	Close() error
}
