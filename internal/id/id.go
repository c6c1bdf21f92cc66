// Package id provides ID generation for jobs and records.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string IDs.
type Generator interface {
	NewID() (string, error)
}

// UUID generates UUIDv7 strings, which sort by creation time.
type UUID struct{}

// NewUUID creates a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// NewID returns a UUIDv7 string.
func (UUID) NewID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return v.String(), nil
}

// Sequence is a deterministic generator for tests.
type Sequence struct {
	Prefix string
	n      int
}

// NewID returns prefix-1, prefix-2, and so on.
func (s *Sequence) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n), nil
}
