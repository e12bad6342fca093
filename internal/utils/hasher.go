package utils

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CodeHasher hashes one-time codes for storage and checks candidates against
// stored hashes. bcrypt is slow on purpose; a 6-digit space is small.
type CodeHasher struct {
	cost int
}

// NewCodeHasher returns a hasher with the given bcrypt cost, clamped to the
// range bcrypt accepts. A non-positive cost selects bcrypt.DefaultCost.
func NewCodeHasher(cost int) *CodeHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &CodeHasher{cost: cost}
}

// Cost returns the bcrypt cost in use.
func (h *CodeHasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of code.
func (h *CodeHasher) Hash(code string) (string, error) {
	if code == "" {
		return "", errors.New("cannot hash empty code")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(b), nil
}

// Matches reports whether candidate hashes to storedHash. bcrypt compares in
// constant time; a malformed hash never matches.
func (h *CodeHasher) Matches(candidate, storedHash string) bool {
	if candidate == "" || storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate)) == nil
}
