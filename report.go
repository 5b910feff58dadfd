package guard

import (
	"time"

	"github.com/giantswarm/mcp-guard/security"
)

// Report is a read-only point-in-time security summary for operational
// dashboards. Configuration is echoed in redacted form: no key material.
type Report struct {
	Timestamp    time.Time          `json:"timestamp"`
	RateLimiting RateLimitingReport `json:"rate_limiting"`
	Config       ConfigReport       `json:"config"`
	Events       map[string]int64   `json:"events"`
}

// RateLimitingReport summarizes limiter and escalation state
type RateLimitingReport struct {
	ActiveIdentifiers     int `json:"active_identifiers"`
	SuspiciousIdentifiers int `json:"suspicious_identifiers"`
}

// ConfigReport echoes the effective configuration with secrets redacted
type ConfigReport struct {
	Window                string `json:"window"`
	MaxRequests           int    `json:"max_requests"`
	BlockThreshold        int    `json:"block_threshold"`
	RotationPeriod        string `json:"rotation_period"`
	MaxStringLength       int    `json:"max_string_length"`
	EncryptionConfigured  bool   `json:"encryption_configured"`
	AuditLoggingEnabled   bool   `json:"audit_logging_enabled"`
	GlobalThrottleEnabled bool   `json:"global_throttle_enabled"`
}

// GenerateReport builds a point-in-time summary of limiter state, event
// counters, and redacted configuration.
func (g *Guard) GenerateReport() Report {
	cfg := g.config

	window := cfg.RateLimit.Window
	if window <= 0 {
		window = security.DefaultWindow
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = security.DefaultMaxRequests
	}
	threshold := cfg.RateLimit.BlockThreshold
	if threshold <= 0 {
		threshold = security.DefaultBlockThreshold
	}

	return Report{
		Timestamp: time.Now(),
		RateLimiting: RateLimitingReport{
			ActiveIdentifiers:     g.limiter.ActiveIdentifiers(),
			SuspiciousIdentifiers: g.escalator.SuspiciousCount(),
		},
		Config: ConfigReport{
			Window:                window.String(),
			MaxRequests:           maxRequests,
			BlockThreshold:        threshold,
			RotationPeriod:        g.validator.RotationPeriod().String(),
			MaxStringLength:       g.sanitizer.MaxStringLength(),
			EncryptionConfigured:  g.encryptor.IsConfigured(),
			AuditLoggingEnabled:   g.auditor.Enabled(),
			GlobalThrottleEnabled: g.throttle.Enabled(),
		},
		Events: g.auditor.Counters(),
	}
}

// LimiterStats exposes limiter statistics for monitoring and alerting
func (g *Guard) LimiterStats() security.LimiterStats {
	return g.limiter.Stats()
}
