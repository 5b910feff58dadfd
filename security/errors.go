package security

import "errors"

// ConfigurationError indicates missing or invalid configuration, typically
// absent key material. It is fatal to the encryption service only, not to
// the process.
type ConfigurationError struct {
	Reason string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// AuthenticationError indicates a decryption integrity failure: tampered
// ciphertext, wrong key, or wrong IV. It must propagate to the caller and
// never be swallowed.
type AuthenticationError struct {
	Reason string
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// IsConfigurationError reports whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsAuthenticationError reports whether err is an AuthenticationError
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
