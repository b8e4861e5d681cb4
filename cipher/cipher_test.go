package cipher

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := New(key)
	require.NoError(t, err)
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCipher(t)
	for _, value := range []string{
		"x",
		"IGQVJ...long-lived-instagram-token",
		strings.Repeat("0123456789", 100),
		"ünïcødé ✓",
		"\x00\x01binary",
	} {
		sealed, err := c.Encrypt(value)
		require.NoError(t, err)

		got, ok := c.Decrypt(sealed)
		require.True(t, ok)
		assert.Equal(t, value, got)
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	t.Parallel()

	c := newTestCipher(t)
	a, err := c.Encrypt("token")
	require.NoError(t, err)
	b, err := c.Encrypt("token")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEmptyValueStaysEmpty(t *testing.T) {
	t.Parallel()

	c := newTestCipher(t)
	sealed, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	got, ok := c.Decrypt("")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestDecryptCorruptReturnsAbsent(t *testing.T) {
	t.Parallel()

	c := newTestCipher(t)
	sealed, err := c.Encrypt("secret-token")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	flipped := base64.RawURLEncoding.EncodeToString(raw)

	for _, input := range []string{
		flipped,
		sealed[:len(sealed)/2],
		"not base64 !!",
		"AAAA",
	} {
		got, ok := c.Decrypt(input)
		assert.False(t, ok, input)
		assert.Empty(t, got)
	}

	other := newTestCipher(t)
	_, ok := other.Decrypt(sealed)
	assert.False(t, ok)
}

func TestNewRejectsBadKeys(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "short", base64.StdEncoding.EncodeToString(make([]byte, 16))} {
		_, err := New(key)
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}

	_, err := New(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
}
