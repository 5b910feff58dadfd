package security

// Event kind constants for security audit logging.
// These constants ensure consistency across the codebase and prevent typos
// when logging security-relevant events.
const (
	// Rate limiting events

	// EventRateLimitViolation is logged when an identifier exceeds its request quota
	EventRateLimitViolation = "rate_limit_violation"

	// EventGlobalThrottle is logged when the process-wide throttle rejects a request
	EventGlobalThrottle = "global_throttle"

	// Escalation events

	// EventSuspiciousIdentifier is logged when an identifier is first flagged as suspicious
	EventSuspiciousIdentifier = "suspicious_identifier"

	// EventIdentifierBlocked is logged when an identifier crosses the violation
	// threshold and should be blocked at the network edge
	EventIdentifierBlocked = "identifier_blocked"

	// Sanitizer events

	// EventInputTruncated is logged when an oversized input is truncated
	EventInputTruncated = "input_truncated"

	// Credential events

	// EventWeakCredential is logged when a validated API key scores weak
	EventWeakCredential = "weak_credential"

	// EventKeyRotationDue is logged when a credential is past its rotation period
	EventKeyRotationDue = "key_rotation_due"

	// Encryption events

	// EventEncryptionKeyGenerated is logged when no key was supplied and an
	// ephemeral process-lifetime key was generated
	EventEncryptionKeyGenerated = "encryption_key_generated"

	// EventDecryptFailed is logged when payload authentication fails during decryption
	EventDecryptFailed = "decrypt_failed"
)

// Severity classifies an audit event
type Severity string

// Severity levels, in increasing order of operational urgency
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// eventSeverities maps each event kind to a fixed severity.
// Unknown kinds default to info.
var eventSeverities = map[string]Severity{
	EventRateLimitViolation:     SeverityWarning,
	EventGlobalThrottle:         SeverityWarning,
	EventSuspiciousIdentifier:   SeverityWarning,
	EventIdentifierBlocked:      SeverityCritical,
	EventInputTruncated:         SeverityInfo,
	EventWeakCredential:         SeverityWarning,
	EventKeyRotationDue:         SeverityWarning,
	EventEncryptionKeyGenerated: SeverityInfo,
	EventDecryptFailed:          SeverityCritical,
}

// SeverityFor returns the fixed severity for an event kind.
// Unknown kinds are classified as info.
func SeverityFor(eventKind string) Severity {
	if sev, ok := eventSeverities[eventKind]; ok {
		return sev
	}
	return SeverityInfo
}
