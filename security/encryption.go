package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the AES-256 key size in bytes
	KeySize = 32

	// ivSize is the GCM IV size in bytes. The payload format fixes a
	// 16-byte IV, so the cipher is constructed with a matching nonce size.
	ivSize = 16

	// tagSize is the GCM authentication tag size in bytes
	tagSize = 16

	// encryptionContext is the additional authenticated data bound to every
	// payload. It identifies this service so ciphertexts cannot be silently
	// re-purposed across services sharing a key.
	encryptionContext = "mcp-guard/encryption/v1"
)

// EncryptedPayload is the (ciphertext, IV, tag) triple produced by Encrypt.
// Decryption requires the exact triple and the original key; tampering with
// any field causes authentication failure.
type EncryptedPayload struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
	Tag        []byte `json:"tag"`
}

// Encryptor handles authenticated symmetric encryption of sensitive
// payloads using AES-256-GCM. The key is immutable after construction and
// safe for unsynchronized concurrent reads.
type Encryptor struct {
	aead       cipher.AEAD
	configured bool
}

// NewEncryptor creates a new encryptor. If key is nil or empty, the
// encryptor is unconfigured and Encrypt/Decrypt return a
// ConfigurationError. The key must be exactly 32 bytes for AES-256.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) == 0 {
		return &Encryptor{configured: false}, nil
	}

	if len(key) != KeySize {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("encryption key must be exactly %d bytes for AES-256, got %d", KeySize, len(key)),
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("failed to create cipher: %v", err)}
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("failed to create GCM: %v", err)}
	}

	return &Encryptor{aead: aead, configured: true}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with a freshly random IV.
// The IV is never reused with the same key.
func (e *Encryptor) Encrypt(plaintext string) (*EncryptedPayload, error) {
	if !e.configured {
		return nil, &ConfigurationError{Reason: "no encryption key configured"}
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the authentication tag to the ciphertext; split them so
	// the stored payload carries the triple explicitly.
	sealed := e.aead.Seal(nil, iv, []byte(plaintext), []byte(encryptionContext))
	boundary := len(sealed) - tagSize

	return &EncryptedPayload{
		Ciphertext: sealed[:boundary],
		IV:         iv,
		Tag:        sealed[boundary:],
	}, nil
}

// Decrypt decrypts an encrypted payload. It fails closed with an
// AuthenticationError if the tag does not verify; corrupted data is never
// passed through.
func (e *Encryptor) Decrypt(payload *EncryptedPayload) (string, error) {
	if !e.configured {
		return "", &ConfigurationError{Reason: "no encryption key configured"}
	}
	if payload == nil {
		return "", &AuthenticationError{Reason: "missing payload"}
	}
	if len(payload.IV) != ivSize || len(payload.Tag) != tagSize {
		return "", &AuthenticationError{Reason: "malformed payload"}
	}

	sealed := make([]byte, 0, len(payload.Ciphertext)+tagSize)
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.Tag...)

	plaintext, err := e.aead.Open(nil, payload.IV, sealed, []byte(encryptionContext))
	if err != nil {
		return "", &AuthenticationError{Reason: "payload verification failed"}
	}

	return string(plaintext), nil
}

// IsConfigured returns true if the encryptor holds key material
func (e *Encryptor) IsConfigured() bool {
	return e.configured
}

// GenerateKey generates a new cryptographically secure 32-byte key for
// AES-256.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// DeriveKey derives a 32-byte AES-256 key from passphrase material using
// HKDF-SHA256. The same passphrase and salt always produce the same key,
// so passphrase-configured deployments stay decryptable across restarts.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, &ConfigurationError{Reason: "passphrase must not be empty"}
	}

	key := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, []byte(passphrase), salt, []byte(encryptionContext))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// KeyFromBase64 decodes a base64-encoded encryption key
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// KeyToBase64 encodes an encryption key to base64
func KeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}
