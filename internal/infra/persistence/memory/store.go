// Package memory provides an in-process snapshot backend used for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"hbnb/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the backend interface.
var _ domain.SnapshotBackend = (*Store)(nil)

// Store keeps the last saved document in memory.
type Store struct {
	mu    sync.Mutex
	data  []byte
	saved bool
	saves int
}

// NewStore returns an empty memory backend.
func NewStore() *Store { return &Store{} }

// NewStoreWith returns a backend pre-seeded with a document.
func NewStoreWith(data []byte) *Store {
	return &Store{data: append([]byte(nil), data...), saved: true}
}

// Driver reports the memory driver.
func (s *Store) Driver() domain.Driver { return domain.DriverMemory }

// Load returns a copy of the last saved document.
func (s *Store) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return nil, domain.ErrNoSnapshot
	}
	return append([]byte(nil), s.data...), nil
}

// Save replaces the stored document.
func (s *Store) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.saved = true
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
