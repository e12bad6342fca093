package model

import "time"

// OneTimeCode is a stored login code. Only the hash of the code is kept.
type OneTimeCode struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	CodeHash  string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

// Usable reports whether the code can still be redeemed at now.
func (c *OneTimeCode) Usable(now time.Time) bool {
	return !c.Consumed && c.ExpiresAt.After(now)
}
