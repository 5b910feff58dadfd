package guard

import (
	"log/slog"
	"time"

	"github.com/giantswarm/mcp-guard/instrumentation"
	"github.com/giantswarm/mcp-guard/security"
	"github.com/giantswarm/mcp-guard/storage"
)

// Config holds the guard configuration.
// The snapshot is immutable after New; reconfiguration requires a new Guard.
type Config struct {
	// RateLimit configures the sliding-window limiter and escalation
	RateLimit RateLimitConfig

	// Credential configures API key validation and rotation checks
	Credential CredentialConfig

	// Sanitize configures input sanitization limits
	Sanitize SanitizeConfig

	// Encryption configures the payload encryption service
	Encryption EncryptionConfig

	// Audit configures security audit logging
	Audit AuditConfig

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers
	// when deriving caller identifiers. Only enable behind a trusted
	// reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is how many proxies to trust from the right of
	// X-Forwarded-For. Zero assumes one trusted proxy.
	TrustedProxyCount int

	// Violations is the store for cumulative violation counts. If nil, an
	// in-memory store is used; supply a durable store (e.g. Redis) so
	// escalation survives restarts.
	Violations storage.ViolationStore

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Instrumentation provides OpenTelemetry metrics and tracing (optional)
	Instrumentation *instrumentation.Instrumentation
}

// RateLimitConfig holds rate limiting and escalation configuration
type RateLimitConfig struct {
	// Window is the sliding-window tracking horizon. Default: 15 minutes.
	Window time.Duration

	// MaxRequests is the quota per window. Default: 100.
	MaxRequests int

	// MaxEntries caps tracked identifiers (LRU eviction at the cap).
	// Default: 10000. Negative means unlimited (not recommended).
	MaxEntries int

	// CleanupInterval is how often stale attempt logs are swept.
	// Default: 1 hour.
	CleanupInterval time.Duration

	// GlobalRate is a process-wide requests-per-second backstop applied
	// before per-identifier limiting. Zero disables it.
	GlobalRate int

	// GlobalBurst is the burst size for the global backstop
	GlobalBurst int

	// BlockThreshold is the cumulative violation count at which an
	// identifier is flagged for blocking at the network edge. Default: 5.
	BlockThreshold int

	// SuspicionTTL controls how long identifiers stay flagged as
	// suspicious after their last violation. Zero keeps them flagged for
	// the process lifetime.
	SuspicionTTL time.Duration
}

// CredentialConfig holds API key validation configuration
type CredentialConfig struct {
	// MinKeyLength is the minimum accepted API key length. Default: 32.
	MinKeyLength int

	// RotationPeriod is how long a credential may live before rotation is
	// due. Default: 90 days.
	RotationPeriod time.Duration
}

// SanitizeConfig holds input sanitization configuration
type SanitizeConfig struct {
	// MaxStringLength caps string values before pattern stripping.
	// Default: 1000.
	MaxStringLength int

	// MaxKeyLength caps record keys; longer keys are dropped outright.
	// Default: 100.
	MaxKeyLength int

	// AllowedTags lists HTML tag names that survive tag stripping.
	// Default: none.
	AllowedTags []string
}

// EncryptionConfig holds payload encryption configuration
type EncryptionConfig struct {
	// Key is the AES-256 key (32 bytes). Takes precedence over Passphrase.
	Key []byte

	// Passphrase derives the key via HKDF-SHA256 when Key is nil. Supply
	// Salt alongside it for domain separation between deployments.
	Passphrase string

	// Salt is the HKDF salt used with Passphrase
	Salt []byte

	// GenerateIfMissing generates an ephemeral process-lifetime key when
	// neither Key nor Passphrase is supplied. Payloads encrypted under a
	// generated key are not decryptable after restart.
	GenerateIfMissing bool
}

// AuditConfig holds audit logging configuration
type AuditConfig struct {
	// Enabled turns on structured audit log output. Event counters are
	// maintained regardless, so reports stay accurate when logging is off.
	Enabled bool
}

// DefaultConfig returns a Config with the documented secure defaults and
// audit logging enabled.
func DefaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{
			Window:          security.DefaultWindow,
			MaxRequests:     security.DefaultMaxRequests,
			MaxEntries:      security.DefaultMaxEntries,
			CleanupInterval: security.DefaultCleanupInterval,
			BlockThreshold:  security.DefaultBlockThreshold,
		},
		Credential: CredentialConfig{
			MinKeyLength:   security.DefaultMinKeyLength,
			RotationPeriod: security.DefaultRotationPeriod,
		},
		Sanitize: SanitizeConfig{
			MaxStringLength: security.DefaultMaxStringLength,
			MaxKeyLength:    security.DefaultMaxKeyLength,
		},
		Encryption: EncryptionConfig{
			GenerateIfMissing: true,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for inconsistencies that New must
// reject rather than paper over.
func (c *Config) Validate() error {
	if len(c.Encryption.Key) > 0 && len(c.Encryption.Key) != security.KeySize {
		return &security.ConfigurationError{
			Reason: "encryption key must be exactly 32 bytes for AES-256",
		}
	}
	if len(c.Encryption.Key) > 0 && c.Encryption.Passphrase != "" {
		return &security.ConfigurationError{
			Reason: "encryption key and passphrase are mutually exclusive",
		}
	}
	if c.RateLimit.Window < 0 {
		return &security.ConfigurationError{Reason: "rate limit window must not be negative"}
	}
	if c.RateLimit.MaxRequests < 0 {
		return &security.ConfigurationError{Reason: "rate limit quota must not be negative"}
	}
	return nil
}
