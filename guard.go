// Package guard is the request-admission and data-protection layer for
// MCP-style monitoring API servers. It decides whether to admit a request
// from an already-identified caller (sliding-window rate limiting with
// escalating violation flagging), validates static credential strength,
// sanitizes untrusted input, encrypts sensitive payloads with authenticated
// symmetric encryption, and keeps a severity-tagged audit trail with live
// counters.
//
// It does not implement authentication: issuing and verifying sessions is
// the embedding server's job.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/mcp-guard/instrumentation"
	"github.com/giantswarm/mcp-guard/security"
	"github.com/giantswarm/mcp-guard/storage/memory"
)

// Guard coordinates the admission and data-protection components behind a
// single facade. All methods are safe for concurrent use; none block on
// I/O except escalation writes to a remote violation store.
type Guard struct {
	config Config

	limiter   *security.SlidingWindowLimiter
	throttle  *security.Throttle
	escalator *security.Escalator
	validator *security.CredentialValidator
	sanitizer *security.Sanitizer
	encryptor *security.Encryptor
	auditor   *security.Auditor

	metrics *instrumentation.Metrics
}

// New creates a Guard from the given configuration. Zero-value fields take
// the documented defaults; see DefaultConfig for the complete set.
func New(cfg Config) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	auditor := security.NewAuditor(logger, cfg.Audit.Enabled)

	var metrics *instrumentation.Metrics
	if cfg.Instrumentation != nil {
		metrics = cfg.Instrumentation.Metrics()
		auditor.SetMetrics(metrics)
	}

	violations := cfg.Violations
	if violations == nil {
		violations = memory.NewStore(logger)
	}

	escalator := security.NewEscalator(security.EscalatorConfig{
		BlockThreshold: cfg.RateLimit.BlockThreshold,
		SuspicionTTL:   cfg.RateLimit.SuspicionTTL,
	}, violations, auditor, logger)

	limiter := security.NewSlidingWindowLimiter(security.LimiterConfig{
		Window:          cfg.RateLimit.Window,
		MaxRequests:     cfg.RateLimit.MaxRequests,
		MaxEntries:      cfg.RateLimit.MaxEntries,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	}, auditor, logger)
	limiter.OnViolation(escalator.RecordViolation)

	key, err := resolveEncryptionKey(cfg.Encryption)
	if err != nil {
		limiter.Stop()
		return nil, err
	}
	encryptor, err := security.NewEncryptor(key)
	if err != nil {
		limiter.Stop()
		return nil, err
	}
	if len(cfg.Encryption.Key) == 0 && cfg.Encryption.Passphrase == "" && encryptor.IsConfigured() {
		auditor.Record(context.Background(), security.EventEncryptionKeyGenerated, nil)
	}

	g := &Guard{
		config:    cfg,
		limiter:   limiter,
		throttle:  security.NewThrottle(cfg.RateLimit.GlobalRate, cfg.RateLimit.GlobalBurst, logger),
		escalator: escalator,
		validator: security.NewCredentialValidator(cfg.Credential.MinKeyLength, cfg.Credential.RotationPeriod),
		sanitizer: security.NewSanitizer(security.SanitizerConfig{
			MaxStringLength: cfg.Sanitize.MaxStringLength,
			MaxKeyLength:    cfg.Sanitize.MaxKeyLength,
			AllowedTags:     cfg.Sanitize.AllowedTags,
		}, auditor, logger),
		encryptor: encryptor,
		auditor:   auditor,
		metrics:   metrics,
	}

	if cfg.Instrumentation != nil {
		if err := cfg.Instrumentation.RegisterIdentifierGauges(
			func() int64 { return int64(limiter.ActiveIdentifiers()) },
			func() int64 { return int64(escalator.SuspiciousCount()) },
		); err != nil {
			limiter.Stop()
			return nil, fmt.Errorf("failed to register identifier gauges: %w", err)
		}
	}

	return g, nil
}

// resolveEncryptionKey picks the key material per the configuration:
// explicit key, passphrase-derived key, generated ephemeral key, or none.
func resolveEncryptionKey(cfg EncryptionConfig) ([]byte, error) {
	if len(cfg.Key) > 0 {
		return cfg.Key, nil
	}
	if cfg.Passphrase != "" {
		return security.DeriveKey(cfg.Passphrase, cfg.Salt)
	}
	if cfg.GenerateIfMissing {
		return security.GenerateKey()
	}
	return nil, nil
}

// Admit sanitizes the raw request parameters and runs the rate limit
// decision for the caller. The returned value is the sanitized copy of
// params; business logic must use it instead of the original.
func (g *Guard) Admit(ctx context.Context, identifier string, params any) (security.Decision, any) {
	sanitized := g.sanitizer.Sanitize(ctx, params)

	if !g.throttle.Allow() {
		g.auditor.Record(ctx, security.EventGlobalThrottle, map[string]any{
			"identifier": identifier,
		})
		if g.metrics != nil {
			g.metrics.RecordRateLimitExceeded(ctx, "global")
			g.metrics.RecordAdmission(ctx, false)
		}
		return security.Decision{
			Allowed:    false,
			RetryAfter: time.Second,
			ResetTime:  time.Now().Add(time.Second),
		}, sanitized
	}

	decision := g.limiter.Check(ctx, identifier)
	if g.metrics != nil {
		g.metrics.RecordAdmission(ctx, decision.Allowed)
		if !decision.Allowed {
			g.metrics.RecordRateLimitExceeded(ctx, "sliding_window")
		}
	}
	return decision, sanitized
}

// CheckRateLimit runs only the per-identifier sliding-window decision,
// optionally overriding window or quota for this check.
func (g *Guard) CheckRateLimit(ctx context.Context, identifier string, opts ...security.CheckOption) security.Decision {
	return g.limiter.Check(ctx, identifier, opts...)
}

// Sanitize recursively strips injection-relevant patterns from untrusted
// input. It never fails; information loss is by design.
func (g *Guard) Sanitize(ctx context.Context, value any) any {
	return g.sanitizer.Sanitize(ctx, value)
}

// ValidateAPIKey scores the structural strength of a static credential.
// A weak result is additionally audited.
func (g *Guard) ValidateAPIKey(ctx context.Context, key string) security.KeyValidation {
	result := g.validator.ValidateAPIKey(key)
	if result.Strength == security.StrengthWeak {
		g.auditor.Record(ctx, security.EventWeakCredential, map[string]any{
			"credential": key,
			"issues":     len(result.Issues),
		})
	}
	return result
}

// ShouldRotate reports whether a credential rotated at lastRotatedAt is due
// for rotation, auditing when it is.
func (g *Guard) ShouldRotate(ctx context.Context, lastRotatedAt time.Time) bool {
	due := g.validator.ShouldRotate(lastRotatedAt)
	if due {
		g.auditor.Record(ctx, security.EventKeyRotationDue, map[string]any{
			"last_rotated_at": lastRotatedAt,
			"rotation_period": g.validator.RotationPeriod().String(),
		})
	}
	return due
}

// Encrypt encrypts a sensitive payload with the process-held key
func (g *Guard) Encrypt(ctx context.Context, plaintext string) (*security.EncryptedPayload, error) {
	start := time.Now()
	payload, err := g.encryptor.Encrypt(plaintext)
	if g.metrics != nil {
		g.metrics.RecordEncryptionOperation(ctx, "encrypt", float64(time.Since(start).Microseconds())/1000.0)
	}
	return payload, err
}

// Decrypt decrypts a payload, failing closed on any integrity violation
func (g *Guard) Decrypt(ctx context.Context, payload *security.EncryptedPayload) (string, error) {
	start := time.Now()
	plaintext, err := g.encryptor.Decrypt(payload)
	if g.metrics != nil {
		g.metrics.RecordEncryptionOperation(ctx, "decrypt", float64(time.Since(start).Microseconds())/1000.0)
	}
	if err != nil && security.IsAuthenticationError(err) {
		g.auditor.Record(ctx, security.EventDecryptFailed, nil)
	}
	return plaintext, err
}

// IsSuspicious reports whether the identifier is currently flagged by the
// escalator.
func (g *Guard) IsSuspicious(identifier string) bool {
	return g.escalator.IsSuspicious(identifier)
}

// Stop releases background resources (the limiter cleanup loop).
// Safe to call multiple times.
func (g *Guard) Stop() {
	g.limiter.Stop()
}
