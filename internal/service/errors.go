package service

import (
	"errors"

	"github.com/IshaNayal/swasth-saathi/internal/utils"
)

// Errors callers branch on. Credential failures carry an internal reason as
// a second wrapped error, so errors.Is matches both the class and the reason.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredential  = errors.New("invalid code")
	ErrUnauthenticated    = errors.New("please sign in again")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDeliveryFailed     = errors.New("code delivery failed")
	ErrThrottled          = errors.New("please wait before requesting another code")
)

// Internal reasons, kept for logs.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrCodeExpired     = errors.New("no usable code: never issued, expired or consumed")
	ErrCodeInvalid     = errors.New("code does not match")
)

// Session failure reasons, re-exported from the issuer.
var (
	ErrSignatureInvalid = utils.ErrSignatureInvalid
	ErrSessionExpired   = utils.ErrSessionExpired
)
