// Package storage defines the interface for persisting per-identifier
// violation counts. Counts feed the escalation threshold, so a durable
// backend lets blocking decisions survive process restarts. In-memory is
// acceptable for single-instance deployments.
package storage

import "context"

// ViolationStore tracks cumulative rate-limit violations per caller
// identifier. All methods accept context.Context for tracing and
// cancellation.
type ViolationStore interface {
	// IncrementViolations adds one violation for the identifier and returns
	// the new cumulative count.
	IncrementViolations(ctx context.Context, identifier string) (int64, error)

	// Violations returns the cumulative violation count for the identifier.
	// An unknown identifier returns 0 with no error.
	Violations(ctx context.Context, identifier string) (int64, error)

	// ResetViolations clears the violation count for the identifier.
	ResetViolations(ctx context.Context, identifier string) error
}
