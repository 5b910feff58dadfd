package security

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/giantswarm/mcp-guard/internal/util"
)

const (
	// DefaultMaxStringLength caps string values before pattern stripping
	DefaultMaxStringLength = 1000

	// DefaultMaxKeyLength caps record keys; longer keys are dropped outright
	DefaultMaxKeyLength = 100
)

// Injection patterns stripped from untrusted strings, applied in order.
var (
	// scriptPattern matches whole <script>...</script> blocks including content
	scriptPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)

	// jsSchemePattern matches javascript: scheme references
	jsSchemePattern = regexp.MustCompile(`(?i)javascript\s*:`)

	// eventHandlerPattern matches inline event-handler attributes (onclick=, onerror=, ...)
	eventHandlerPattern = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)

	// sqlPattern matches common SQL metacharacters and keyword sequences
	sqlPattern = regexp.MustCompile(`(?i)('|--|;|/\*|\*/|\b(union|select|insert|delete|drop)\b)`)

	// shellPattern matches shell metacharacters
	shellPattern = regexp.MustCompile("[;&|`$(){}\\[\\]\\\\]")

	// tagPattern matches any remaining HTML tag, capturing its name for
	// the allow-list check
	tagPattern = regexp.MustCompile(`(?i)</?([a-z][a-z0-9]*)\b[^>]*/?>`)
)

// SanitizerConfig holds sanitizer limits.
// Zero values select the documented defaults.
type SanitizerConfig struct {
	// MaxStringLength caps string values; longer strings are truncated and
	// the truncation is audited
	MaxStringLength int

	// MaxKeyLength caps record keys; longer keys are dropped, not truncated
	MaxKeyLength int

	// AllowedTags lists HTML tag names (lowercase) that survive tag
	// stripping. Default: none.
	AllowedTags []string
}

// Sanitizer recursively strips injection-relevant patterns from untrusted
// input. It is lossy by design: the objective is defensive stripping, not
// faithful re-encoding. Callers must not assume round-trip fidelity for
// strings containing the stripped patterns.
type Sanitizer struct {
	maxStringLength int
	maxKeyLength    int
	allowedTags     map[string]bool
	auditor         *Auditor
	logger          *slog.Logger
}

// NewSanitizer creates a sanitizer. The auditor receives truncation events;
// it may be nil.
func NewSanitizer(cfg SanitizerConfig, auditor *Auditor, logger *slog.Logger) *Sanitizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxStringLength <= 0 {
		cfg.MaxStringLength = DefaultMaxStringLength
	}
	if cfg.MaxKeyLength <= 0 {
		cfg.MaxKeyLength = DefaultMaxKeyLength
	}

	allowed := make(map[string]bool, len(cfg.AllowedTags))
	for _, tag := range cfg.AllowedTags {
		allowed[strings.ToLower(tag)] = true
	}

	return &Sanitizer{
		maxStringLength: cfg.MaxStringLength,
		maxKeyLength:    cfg.MaxKeyLength,
		allowedTags:     allowed,
		auditor:         auditor,
		logger:          logger,
	}
}

// Sanitize recursively cleans a value. Strings are capped and stripped,
// arrays are sanitized element-wise, keyed records have both keys and
// values sanitized, and all other types (numbers, booleans, nil) pass
// through unchanged. Sanitization never fails.
func (s *Sanitizer) Sanitize(ctx context.Context, value any) any {
	switch v := value.(type) {
	case string:
		return s.sanitizeString(ctx, v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = s.Sanitize(ctx, elem)
		}
		return out
	case map[string]any:
		return s.sanitizeRecord(ctx, v)
	default:
		return value
	}
}

// sanitizeRecord sanitizes keys and values of a keyed record. Excessively
// long keys are dropped outright rather than cleaned up, and keys that do
// not survive sanitization are dropped with their values.
func (s *Sanitizer) sanitizeRecord(ctx context.Context, record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if len(key) > s.maxKeyLength {
			s.logger.Debug("Dropped oversized record key", "key_length", len(key))
			continue
		}
		cleanKey := s.stripPatterns(key)
		if cleanKey == "" {
			s.logger.Debug("Dropped record key emptied by sanitization")
			continue
		}
		out[cleanKey] = s.Sanitize(ctx, value)
	}
	return out
}

// sanitizeString caps the string's length, then strips injection patterns
func (s *Sanitizer) sanitizeString(ctx context.Context, value string) string {
	if len(value) > s.maxStringLength {
		value = util.SafeTruncate(value, s.maxStringLength)
		if s.auditor != nil {
			s.auditor.Record(ctx, EventInputTruncated, map[string]any{
				"max_length": s.maxStringLength,
			})
		}
	}
	return s.stripPatterns(value)
}

// stripPatterns applies the injection patterns in sequence: script blocks,
// javascript: schemes, inline event handlers, SQL sequences, shell
// metacharacters, and finally any HTML tag not on the allow-list.
func (s *Sanitizer) stripPatterns(value string) string {
	value = scriptPattern.ReplaceAllString(value, "")
	value = jsSchemePattern.ReplaceAllString(value, "")
	value = eventHandlerPattern.ReplaceAllString(value, "")
	value = sqlPattern.ReplaceAllString(value, "")
	value = shellPattern.ReplaceAllString(value, "")
	value = tagPattern.ReplaceAllStringFunc(value, func(tag string) string {
		name := strings.ToLower(tagPattern.FindStringSubmatch(tag)[1])
		if s.allowedTags[name] {
			return tag
		}
		return ""
	})
	return value
}

// MaxStringLength returns the configured string cap
func (s *Sanitizer) MaxStringLength() int {
	return s.maxStringLength
}
