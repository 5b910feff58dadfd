package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/mcp-guard/instrumentation"
)

// sensitiveDetailKeys lists detail fields that are hashed before logging
// so raw caller identifiers and credentials never reach log storage.
var sensitiveDetailKeys = map[string]bool{
	"identifier": true,
	"api_key":    true,
	"credential": true,
}

// Auditor classifies security events by severity, increments per-kind
// counters, and writes structured log entries. Recording is fire-and-forget:
// it never blocks or fails the caller.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
	metrics *instrumentation.Metrics

	mu       sync.Mutex
	counters map[string]int64
}

// NewAuditor creates a new security auditor.
// When enabled is false, events are still counted (so reports stay accurate)
// but no log entries are written.
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:   logger,
		enabled:  enabled,
		counters: make(map[string]int64),
	}
}

// SetMetrics attaches metric instruments. Must be called before concurrent use.
func (a *Auditor) SetMetrics(m *instrumentation.Metrics) {
	a.metrics = m
}

// Entry represents a recorded security audit event
type Entry struct {
	ID        string
	EventKind string
	Severity  Severity
	Details   map[string]any
	Timestamp time.Time
}

// Record classifies and records a security event. Sensitive detail fields
// are hashed before logging. The context carries the request ID for
// correlation when the event originated from an HTTP request.
func (a *Auditor) Record(ctx context.Context, eventKind string, details map[string]any) {
	severity := SeverityFor(eventKind)

	a.mu.Lock()
	a.counters[eventKind]++
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.RecordAuditEvent(ctx, eventKind, string(severity))
	}

	if !a.enabled {
		return
	}

	entry := Entry{
		ID:        uuid.NewString(),
		EventKind: eventKind,
		Severity:  severity,
		Details:   redactDetails(details),
		Timestamp: time.Now(),
	}

	attrs := []any{
		"audit_id", entry.ID,
		"event_kind", entry.EventKind,
		"severity", string(entry.Severity),
		"details", entry.Details,
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	switch severity {
	case SeverityCritical:
		a.logger.Error("security_audit", attrs...)
	case SeverityWarning:
		a.logger.Warn("security_audit", attrs...)
	default:
		a.logger.Info("security_audit", attrs...)
	}
}

// Counters returns a point-in-time snapshot of per-event-kind counters
func (a *Auditor) Counters() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make(map[string]int64, len(a.counters))
	for kind, count := range a.counters {
		snapshot[kind] = count
	}
	return snapshot
}

// Enabled reports whether audit logging is active
func (a *Auditor) Enabled() bool {
	return a.enabled
}

// redactDetails hashes sensitive fields so PII and credential material
// never reach log storage
func redactDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	redacted := make(map[string]any, len(details))
	for k, v := range details {
		if sensitiveDetailKeys[k] {
			if s, ok := v.(string); ok {
				redacted[k+"_hash"] = hashForLogging(s)
				continue
			}
		}
		redacted[k] = v
	}
	return redacted
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
