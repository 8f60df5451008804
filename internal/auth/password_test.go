package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "secret1"))
	assert.False(t, VerifyPassword(hash, "secret2"))
	assert.False(t, VerifyPassword("", "secret1"))

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "jos\u00e9", NormalizeUsername(" jose\u0301 "))
	assert.Equal(t, "bob", NormalizeUsername("\tbob\n"))
}
