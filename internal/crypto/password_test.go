package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.NotContains(t, hash, "correct horse")

	assert.True(t, VerifyPassword("correct horse battery staple", hash))
	assert.False(t, VerifyPassword("Correct horse battery staple", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestHashPasswordSaltIsRandom(t *testing.T) {
	h1, err := HashPassword("same password")
	require.NoError(t, err)
	h2, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "fresh salt per hash")
	assert.True(t, VerifyPassword("same password", h1))
	assert.True(t, VerifyPassword("same password", h2))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	tests := []string{
		"",
		"plaintext-stored-by-mistake",
		"$argon2id$v=19$m=65536,t=1,p=4$salt",
		"$bcrypt$whatever$else$here$x",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$!!!",
	}

	for _, encoded := range tests {
		assert.False(t, VerifyPassword("anything", encoded), "hash %q", encoded)
	}
}
