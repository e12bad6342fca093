package model

import "time"

const (
	RolePatient = "patient"
)

// Account is the identity behind a phone number. PhoneNumber is unique.
type Account struct {
	ID                string    `json:"id"`
	PhoneNumber       string    `json:"phone_number"`
	Role              string    `json:"role"`
	PreferredLanguage string    `json:"preferred_language,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
