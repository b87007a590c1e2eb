// Package crypto seals member OAuth credentials before they reach the
// database. Calendar grants are long-lived refresh tokens, so they are
// stored AES-256-GCM encrypted under a key supplied through the
// environment rather than in the clear.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const keySize = 32

var (
	// ErrInvalidKey means the configured key is missing or does not decode
	// to 32 bytes.
	ErrInvalidKey = errors.New("invalid encryption key")
	// ErrMalformedCiphertext means the stored blob is too short to carry a
	// nonce and cannot have been produced by Encrypt.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Encrypter encrypts and decrypts data.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// TokenCipher is an AES-256-GCM Encrypter for credential blobs. Each
// Encrypt call draws a fresh random nonce and prepends it to the output,
// so the stored blob is self-contained.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher builds a TokenCipher from a base64-encoded 32-byte key.
func NewTokenCipher(encodedKey string) (*TokenCipher, error) {
	if encodedKey == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64: %v", ErrInvalidKey, err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), keySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (c *TokenCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Tampering with either the
// nonce prefix or the sealed payload fails authentication.
func (c *TokenCipher) Decrypt(blob []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(blob) < nonceSize {
		return nil, ErrMalformedCiphertext
	}
	return c.aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
}
