package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, VerifyPassword("correct horse battery staple", hash))
	assert.False(t, VerifyPassword("wrong password", hash))
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret("oi_")
	require.NoError(t, err)
	b, err := GenerateSecret("oi_")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "oi_")
	assert.Greater(t, len(a), 40)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abcd", Prefix("abcdefgh", 4))
	assert.Equal(t, "ab", Prefix("ab", 4))
}

func TestKeyedHasher(t *testing.T) {
	h := NewKeyedHasher("pepper-one")

	digest := h.Hash("secret")
	assert.Equal(t, digest, h.Hash("secret"))
	assert.True(t, h.Matches("secret", digest))
	assert.False(t, h.Matches("other", digest))

	// a different pepper yields a different digest for the same input
	other := NewKeyedHasher("pepper-two")
	assert.NotEqual(t, digest, other.Hash("secret"))
}
