package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode_Length(t *testing.T) {
	for _, length := range []int{MinCodeLength, 6, MaxCodeLength} {
		code, err := GenerateNumericCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.True(t, IsNumericCode(code), "code %q", code)
	}
}

func TestGenerateNumericCode_RejectsBadLength(t *testing.T) {
	_, err := GenerateNumericCode(MinCodeLength - 1)
	assert.Error(t, err)
	_, err = GenerateNumericCode(MaxCodeLength + 1)
	assert.Error(t, err)
}

func TestGenerateNumericCode_Randomness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateNumericCode(10)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestIsNumericCode(t *testing.T) {
	assert.True(t, IsNumericCode("000000"))
	assert.True(t, IsNumericCode("9"))
	assert.False(t, IsNumericCode(""))
	assert.False(t, IsNumericCode("12a456"))
	assert.False(t, IsNumericCode(" 123456"))
	assert.False(t, IsNumericCode("१२३"))
}
