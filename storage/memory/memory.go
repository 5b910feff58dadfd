// Package memory provides an in-memory implementation of the violation store.
// It is suitable for development, testing, and single-instance deployments.
package memory

import (
	"context"
	"log/slog"
	"sync"
)

// Store is an in-memory implementation of storage.ViolationStore.
type Store struct {
	mu     sync.RWMutex
	counts map[string]int64
	logger *slog.Logger
}

// NewStore creates a new in-memory violation store
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		counts: make(map[string]int64),
		logger: logger,
	}
}

// IncrementViolations adds one violation for the identifier and returns the new count
func (s *Store) IncrementViolations(_ context.Context, identifier string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[identifier]++
	count := s.counts[identifier]

	s.logger.Debug("Violation recorded", "count", count)
	return count, nil
}

// Violations returns the cumulative violation count for the identifier
func (s *Store) Violations(_ context.Context, identifier string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.counts[identifier], nil
}

// ResetViolations clears the violation count for the identifier
func (s *Store) ResetViolations(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counts, identifier)
	return nil
}

// Size returns the number of tracked identifiers, for metrics callbacks.
func (s *Store) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.counts))
}
