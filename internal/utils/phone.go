package utils

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPhone       = errors.New("phone number must be 6 to 15 digits with an optional leading +")
	ErrMissingCountryCode = errors.New("phone number has no country code and no default is configured")
)

// NormalizePhone returns raw in E.164 form. Spaces, dashes, dots and
// parentheses are stripped and a leading 00 is read as +. A number without a
// country prefix loses one trunk 0 and gets defaultCountryCode in front, so
// "09876543210", "9876543210" and "+91 98765 43210" are the same phone when
// the default is "91".
func NormalizePhone(raw, defaultCountryCode string) (string, error) {
	var b strings.Builder
	plus := false
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			continue
		case r == '+' && b.Len() == 0 && !plus:
			plus = true
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()
	if !plus && strings.HasPrefix(digits, "00") {
		plus = true
		digits = digits[2:]
	}
	if len(digits) < 6 {
		return "", ErrInvalidPhone
	}
	if !plus {
		if defaultCountryCode == "" {
			return "", ErrMissingCountryCode
		}
		digits = defaultCountryCode + strings.TrimPrefix(digits, "0")
	}
	if len(digits) > 15 || digits[0] == '0' {
		return "", ErrInvalidPhone
	}
	return "+" + digits, nil
}

// ValidCountryCode reports whether cc is 1 to 3 digits without a leading 0.
func ValidCountryCode(cc string) bool {
	if len(cc) < 1 || len(cc) > 3 || cc[0] == '0' {
		return false
	}
	for _, r := range cc {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MaskPhone keeps the last four characters, for log lines.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
