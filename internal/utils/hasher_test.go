package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewCodeHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewCodeHasher(0).Cost())
	assert.Equal(t, bcrypt.MinCost, NewCodeHasher(2).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewCodeHasher(99).Cost())
	assert.Equal(t, 10, NewCodeHasher(10).Cost())
}

func TestCodeHasher_Hash(t *testing.T) {
	h := NewCodeHasher(bcrypt.MinCost)

	hash, err := h.Hash("012345")

	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotContains(t, hash, "012345")
}

func TestCodeHasher_Hash_Empty(t *testing.T) {
	_, err := NewCodeHasher(bcrypt.MinCost).Hash("")
	assert.Error(t, err)
}

func TestCodeHasher_Matches(t *testing.T) {
	h := NewCodeHasher(bcrypt.MinCost)
	hash, err := h.Hash("012345")
	require.NoError(t, err)

	assert.True(t, h.Matches("012345", hash))
	assert.False(t, h.Matches("12345", hash))
	assert.False(t, h.Matches("000000", hash))
	assert.False(t, h.Matches("", hash))
}

func TestCodeHasher_Matches_InvalidHash(t *testing.T) {
	h := NewCodeHasher(bcrypt.MinCost)
	assert.False(t, h.Matches("012345", "invalidhash"))
	assert.False(t, h.Matches("012345", ""))
}
