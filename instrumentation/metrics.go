package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the guard
type Metrics struct {
	// Admission metrics
	RequestsAdmitted  metric.Int64Counter
	RequestsRejected  metric.Int64Counter
	RateLimitExceeded metric.Int64Counter

	// Identifier gauges (observed via registered callbacks)
	ActiveIdentifiers     metric.Int64ObservableGauge
	SuspiciousIdentifiers metric.Int64ObservableGauge

	// Sanitizer metrics
	InputTruncations metric.Int64Counter

	// Audit metrics
	AuditEventsTotal metric.Int64Counter

	// Encryption metrics
	EncryptionOperationsTotal metric.Int64Counter
	EncryptionDuration        metric.Float64Histogram
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	meter := inst.Meter("security")

	var err error
	m.RequestsAdmitted, err = meter.Int64Counter(
		"guard.requests.admitted",
		metric.WithDescription("Number of requests admitted by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests.admitted counter: %w", err)
	}

	m.RequestsRejected, err = meter.Int64Counter(
		"guard.requests.rejected",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests.rejected counter: %w", err)
	}

	m.RateLimitExceeded, err = meter.Int64Counter(
		"guard.rate_limit.exceeded",
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.ActiveIdentifiers, err = meter.Int64ObservableGauge(
		"guard.identifiers.active",
		metric.WithDescription("Number of identifiers currently tracked by the limiter"),
		metric.WithUnit("{identifier}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identifiers.active gauge: %w", err)
	}

	m.SuspiciousIdentifiers, err = meter.Int64ObservableGauge(
		"guard.identifiers.suspicious",
		metric.WithDescription("Number of identifiers currently flagged as suspicious"),
		metric.WithUnit("{identifier}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identifiers.suspicious gauge: %w", err)
	}

	m.InputTruncations, err = meter.Int64Counter(
		"guard.sanitizer.truncations",
		metric.WithDescription("Number of oversized inputs truncated by the sanitizer"),
		metric.WithUnit("{truncation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sanitizer.truncations counter: %w", err)
	}

	m.AuditEventsTotal, err = meter.Int64Counter(
		"guard.audit.events.total",
		metric.WithDescription("Total number of audit events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events.total counter: %w", err)
	}

	m.EncryptionOperationsTotal, err = meter.Int64Counter(
		"guard.encryption.operations.total",
		metric.WithDescription("Total number of encryption/decryption operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.operations.total counter: %w", err)
	}

	m.EncryptionDuration, err = meter.Float64Histogram(
		"guard.encryption.duration",
		metric.WithDescription("Encryption/decryption operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.duration histogram: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordAdmission records a rate limit decision
func (m *Metrics) RecordAdmission(ctx context.Context, allowed bool) {
	if allowed {
		m.RequestsAdmitted.Add(ctx, 1)
		return
	}
	m.RequestsRejected.Add(ctx, 1)
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiterType string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter_type", limiterType),
	))
}

// RecordInputTruncation records a sanitizer truncation
func (m *Metrics) RecordInputTruncation(ctx context.Context) {
	m.InputTruncations.Add(ctx, 1)
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventKind, severity string) {
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_kind", eventKind),
		attribute.String("severity", severity),
	))
}

// RecordEncryptionOperation records an encryption/decryption operation
func (m *Metrics) RecordEncryptionOperation(ctx context.Context, operation string, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
	}

	m.EncryptionOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.EncryptionDuration.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}
