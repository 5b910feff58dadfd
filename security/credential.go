package security

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

const (
	// DefaultMinKeyLength is the minimum accepted API key length
	DefaultMinKeyLength = 32

	// DefaultRotationPeriod is how long a credential may live before
	// rotation is due (90 days)
	DefaultRotationPeriod = 90 * 24 * time.Hour

	// Entropy thresholds (bits per character) separating strength classes
	weakEntropyThreshold   = 3.5
	strongEntropyThreshold = 4.0
)

// Strength classifies a credential's structural unpredictability
type Strength string

// Strength classes, from the Shannon entropy of the key's character
// frequency distribution
const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// KeyValidation is the result of validating an API key. Issues accumulate
// rather than short-circuit, so a single validation pass reports everything
// wrong with a credential.
type KeyValidation struct {
	// Valid is true only when no issues were found
	Valid bool

	// Issues lists every failed check in check order
	Issues []string

	// Strength classifies the key's entropy. A key can be strong yet
	// invalid (e.g. strong but too short).
	Strength Strength

	// Entropy is the measured Shannon entropy in bits per character
	Entropy float64
}

// apiKeyPattern is the recognized structural format for API keys:
// base64url-ish material plus the separators common key formats use
// (UUID hyphens, prefixed keys with dots or underscores).
var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// CredentialValidator scores the structural strength of static credentials
// and decides when rotation is due. It holds no mutable state and is safe
// for concurrent use.
type CredentialValidator struct {
	minLength      int
	rotationPeriod time.Duration

	now func() time.Time
}

// NewCredentialValidator creates a credential validator.
// Zero values select the documented defaults.
func NewCredentialValidator(minLength int, rotationPeriod time.Duration) *CredentialValidator {
	if minLength <= 0 {
		minLength = DefaultMinKeyLength
	}
	if rotationPeriod <= 0 {
		rotationPeriod = DefaultRotationPeriod
	}
	return &CredentialValidator{
		minLength:      minLength,
		rotationPeriod: rotationPeriod,
		now:            time.Now,
	}
}

// ValidateAPIKey checks an API key's presence, length, structural format,
// and Shannon entropy, accumulating issues rather than stopping at the
// first failure.
func (v *CredentialValidator) ValidateAPIKey(key string) KeyValidation {
	var issues []string

	if key == "" {
		return KeyValidation{
			Valid:    false,
			Issues:   []string{"api key is required"},
			Strength: StrengthWeak,
		}
	}

	if len(key) < v.minLength {
		issues = append(issues, fmt.Sprintf("api key must be at least %d characters", v.minLength))
	}

	if !apiKeyPattern.MatchString(key) {
		issues = append(issues, "api key contains unrecognized characters")
	}

	entropy := shannonEntropy(key)
	strength := strengthFor(entropy)
	if strength == StrengthWeak {
		issues = append(issues, "api key entropy is too low")
	}

	return KeyValidation{
		Valid:    len(issues) == 0,
		Issues:   issues,
		Strength: strength,
		Entropy:  entropy,
	}
}

// ShouldRotate reports whether a credential rotated at lastRotatedAt is due
// for rotation. A zero time (never rotated) is always due. Pure function:
// the caller decides what to do with a true result.
func (v *CredentialValidator) ShouldRotate(lastRotatedAt time.Time) bool {
	if lastRotatedAt.IsZero() {
		return true
	}
	return v.now().Sub(lastRotatedAt) >= v.rotationPeriod
}

// RotationPeriod returns the configured rotation period
func (v *CredentialValidator) RotationPeriod() time.Duration {
	return v.rotationPeriod
}

// strengthFor maps Shannon entropy to a strength class
func strengthFor(entropy float64) Strength {
	switch {
	case entropy >= strongEntropyThreshold:
		return StrengthStrong
	case entropy >= weakEntropyThreshold:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// shannonEntropy computes H = -Σ p(c) log2 p(c) over the credential's
// character frequency distribution, in bits per character.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}

	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}

	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
