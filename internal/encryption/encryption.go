// Package encryption protects stored provider credentials with AES-256-GCM.
// Keys travel as base64 text so the same value works in an environment
// variable, the config file, or a key file beside the database.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	// ErrKeyFormat reports a key that is neither valid base64 of KeySize
	// bytes nor a raw string of exactly KeySize bytes.
	ErrKeyFormat = errors.New("encryption key must be base64 of 32 bytes or 32 raw bytes")

	// ErrCiphertextFormat reports ciphertext too short to carry its nonce.
	ErrCiphertextFormat = errors.New("ciphertext shorter than nonce")
)

// Encryptor seals and opens provider credentials.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor builds an Encryptor from an encoded key. An empty key
// generates a fresh one. The returned string is the encoded form of
// whichever key is in use, suitable for persisting.
func NewEncryptor(encoded string) (*Encryptor, string, error) {
	if encoded == "" {
		var err error
		encoded, err = GenerateKey()
		if err != nil {
			return nil, "", err
		}
	}
	raw, err := ParseKey(encoded)
	if err != nil {
		return nil, "", err
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, "", fmt.Errorf("building cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, "", fmt.Errorf("building GCM: %w", err)
	}
	return &Encryptor{aead: aead}, encoded, nil
}

// GenerateKey returns a new random key in base64 form.
func GenerateKey() (string, error) {
	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ParseKey decodes an encoded key and validates its shape. Base64 is the
// canonical form; a string of exactly KeySize bytes is accepted as a raw
// key. Surrounding whitespace, such as a key file's trailing newline, is
// ignored.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if raw, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		if len(raw) != KeySize {
			return nil, fmt.Errorf("%w: decoded to %d bytes", ErrKeyFormat, len(raw))
		}
		return raw, nil
	}
	if len(encoded) == KeySize {
		return []byte(encoded), nil
	}
	return nil, ErrKeyFormat
}

// Encrypt seals plaintext under a fresh nonce and returns base64 text with
// the nonce prepended.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt, failing on truncated or tampered input.
func (e *Encryptor) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	n := e.aead.NonceSize()
	if len(sealed) < n {
		return "", ErrCiphertextFormat
	}
	opened, err := e.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", fmt.Errorf("opening ciphertext: %w", err)
	}
	return string(opened), nil
}
