package cipher

import (
	gocipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidKey is returned when a configured key is not 32 bytes of base64.
var ErrInvalidKey = errors.New("cipher key must be 32 bytes, base64 encoded")

// Cipher wraps third-party OAuth tokens before they are persisted. It uses
// XChaCha20-Poly1305 with a random 24-byte nonce per value.
type Cipher struct {
	aead gocipher.AEAD
}

// New builds a Cipher from a base64 (standard or URL alphabet, padded or
// not) encoded 32-byte key.
func New(encodedKey string) (*Cipher, error) {
	key, err := decodeKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return NewFromBytes(key)
}

// NewFromBytes builds a Cipher from a raw 32-byte key.
func NewFromBytes(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("new xchacha20poly1305: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// GenerateKey returns a fresh random key in the encoding New accepts.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// Encrypt seals value as base64url(nonce || ciphertext). The empty string
// maps to the empty string so optional tokens stay optional.
func (c *Cipher) Encrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(value)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Corrupt, truncated or foreign
// input reports ok=false; it never panics.
func (c *Cipher) Decrypt(sealed string) (value string, ok bool) {
	if sealed == "" {
		return "", true
	}

	payload, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", false
	}
	if len(payload) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", false
	}

	nonce, ciphertext := payload[:c.aead.NonceSize()], payload[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

func decodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrInvalidKey
	}

	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		key, err := enc.DecodeString(encoded)
		if err == nil && len(key) == chacha20poly1305.KeySize {
			return key, nil
		}
	}
	return nil, ErrInvalidKey
}
