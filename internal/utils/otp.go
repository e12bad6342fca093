package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	MinCodeLength = 4
	MaxCodeLength = 10
)

// GenerateNumericCode returns a code of exactly length decimal digits drawn
// from crypto/rand. Leading zeros are kept.
func GenerateNumericCode(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", fmt.Errorf("code length must be between %d and %d, got %d", MinCodeLength, MaxCodeLength, length)
	}
	digits := make([]byte, length)
	ten := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// IsNumericCode reports whether s is non-empty and made only of ASCII digits.
func IsNumericCode(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
