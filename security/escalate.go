package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/giantswarm/mcp-guard/storage"
)

const (
	// DefaultBlockThreshold is the cumulative violation count at which an
	// identifier is flagged for blocking at the network edge
	DefaultBlockThreshold = 5
)

// Escalator consumes limiter rejections, marks identifiers as suspicious,
// and signals blocking once repeated violations cross a threshold. It only
// flags; enforcement belongs to an external collaborator such as a firewall
// or edge proxy.
type Escalator struct {
	mu         sync.Mutex
	suspicious map[string]time.Time // identifier -> expiry (zero = permanent)

	ttl       time.Duration
	threshold int64
	store     storage.ViolationStore
	auditor   *Auditor
	logger    *slog.Logger

	now func() time.Time
}

// EscalatorConfig holds escalation settings.
type EscalatorConfig struct {
	// BlockThreshold is the cumulative violation count that triggers the
	// critical blocking signal. Zero selects the default of 5.
	BlockThreshold int

	// SuspicionTTL controls how long an identifier stays flagged after its
	// last violation. Zero keeps identifiers flagged for the process
	// lifetime.
	SuspicionTTL time.Duration
}

// NewEscalator creates an escalator backed by the given violation store.
func NewEscalator(cfg EscalatorConfig, store storage.ViolationStore, auditor *Auditor, logger *slog.Logger) *Escalator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BlockThreshold <= 0 {
		cfg.BlockThreshold = DefaultBlockThreshold
	}

	return &Escalator{
		suspicious: make(map[string]time.Time),
		ttl:        cfg.SuspicionTTL,
		threshold:  int64(cfg.BlockThreshold),
		store:      store,
		auditor:    auditor,
		logger:     logger,
		now:        time.Now,
	}
}

// RecordViolation flags the identifier as suspicious and increments its
// cumulative violation count. Crossing the threshold emits a critical audit
// event. Store failures are logged, never propagated: escalation is a
// side effect of an already-made rejection decision.
func (e *Escalator) RecordViolation(ctx context.Context, identifier string) {
	now := e.now()

	e.mu.Lock()
	expiry, known := e.suspicious[identifier]
	if known && !expiry.IsZero() && !expiry.After(now) {
		known = false
	}
	var deadline time.Time
	if e.ttl > 0 {
		deadline = now.Add(e.ttl)
	}
	e.suspicious[identifier] = deadline
	e.mu.Unlock()

	if !known {
		if e.auditor != nil {
			e.auditor.Record(ctx, EventSuspiciousIdentifier, map[string]any{
				"identifier": identifier,
			})
		}
		e.logger.Warn("Identifier flagged as suspicious",
			"identifier", hashForLogging(identifier))
	}

	count, err := e.store.IncrementViolations(ctx, identifier)
	if err != nil {
		e.logger.Error("Failed to persist violation count",
			"identifier", hashForLogging(identifier),
			"error", err)
		return
	}

	if count >= e.threshold {
		if e.auditor != nil {
			e.auditor.Record(ctx, EventIdentifierBlocked, map[string]any{
				"identifier": identifier,
				"violations": count,
				"threshold":  e.threshold,
			})
		}
		e.logger.Error("Identifier exceeded violation threshold, should be blocked at the edge",
			"identifier", hashForLogging(identifier),
			"violations", count,
			"threshold", e.threshold)
	}
}

// IsSuspicious reports whether the identifier is currently flagged.
// Expired flags are pruned lazily.
func (e *Escalator) IsSuspicious(identifier string) bool {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	expiry, ok := e.suspicious[identifier]
	if !ok {
		return false
	}
	if !expiry.IsZero() && !expiry.After(now) {
		delete(e.suspicious, identifier)
		return false
	}
	return true
}

// SuspiciousCount returns the number of currently flagged identifiers,
// pruning expired flags along the way.
func (e *Escalator) SuspiciousCount() int {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	for identifier, expiry := range e.suspicious {
		if !expiry.IsZero() && !expiry.After(now) {
			delete(e.suspicious, identifier)
		}
	}
	return len(e.suspicious)
}

// Violations returns the cumulative violation count for the identifier
// from the backing store.
func (e *Escalator) Violations(ctx context.Context, identifier string) (int64, error) {
	return e.store.Violations(ctx, identifier)
}
