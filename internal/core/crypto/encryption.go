// Package crypto encrypts service secret values at rest.
// This is part of the Functional Core - all functions are pure with no I/O.
//
// Values are sealed with AES-256-GCM under a key derived from the platform master
// secret with HKDF-SHA256.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrKeyTooShort is returned when the encryption key is too short.
	ErrKeyTooShort = errors.New("encryption key must be at least 32 bytes")

	// ErrInvalidCiphertext is returned when decryption fails due to invalid ciphertext.
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data).
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")

	ErrEmptySecret = errors.New("master secret is empty")
)

// SealedPrefix marks a value produced by SealString.
const SealedPrefix = "enc:v1:"

// keyInfo binds derived keys to their use.
const keyInfo = "berth service secrets v1"

// =============================================================================
// Key Derivation
// =============================================================================

// DeriveKey derives a 32-byte AES-256 key from the master secret using HKDF-SHA256.
// The result is deterministic for a given secret.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// =============================================================================
// AES-256-GCM Encryption
// =============================================================================

// Encrypt encrypts plaintext using AES-256-GCM with the provided key.
//
// The ciphertext format is: nonce (12 bytes) || encrypted data || auth tag (16 bytes)
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext that was encrypted with Encrypt.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) < 32 {
		return nil, ErrKeyTooShort
	}
	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// =============================================================================
// String Sealing
// =============================================================================

// SealString encrypts value and returns it base64-encoded behind SealedPrefix,
// suitable for a TEXT column.
func SealString(value string, key []byte) (string, error) {
	ciphertext, err := Encrypt([]byte(value), key)
	if err != nil {
		return "", err
	}
	return SealedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// OpenString reverses SealString. Values without SealedPrefix are returned unchanged,
// so rows written before encryption was enabled still load.
func OpenString(value string, key []byte) (string, error) {
	encoded, ok := strings.CutPrefix(value, SealedPrefix)
	if !ok {
		return value, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	plaintext, err := Decrypt(ciphertext, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// IsSealed reports whether value was produced by SealString.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}
