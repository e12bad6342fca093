package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSignatureInvalid covers malformed tokens, wrong algorithms and bad signatures.
	ErrSignatureInvalid = errors.New("session token signature invalid")
	// ErrSessionExpired is returned for a correctly signed token past its expiry.
	ErrSessionExpired = errors.New("session token expired")
)

// SessionClaims is the payload of a session token. The registered exp claim
// is whole seconds rounded up; ExpiresAtNano is the exact expiry and is the
// one Verify enforces.
type SessionClaims struct {
	AccountID     string `json:"account_id"`
	Role          string `json:"role"`
	ExpiresAtNano int64  `json:"exp_ns"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies HS256 session tokens.
type SessionIssuer struct {
	secretKey []byte
	ttl       time.Duration
	now       Clock
}

// NewSessionIssuer creates a SessionIssuer. A nil clock uses the system clock.
func NewSessionIssuer(secretKey string, ttl time.Duration, now Clock) *SessionIssuer {
	return &SessionIssuer{secretKey: []byte(secretKey), ttl: ttl, now: orSystem(now)}
}

// Issue signs a token for accountID and role and returns it with its expiry.
func (si *SessionIssuer) Issue(accountID, role string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("account id is required")
	}
	issuedAt := si.now()
	expiresAt := issuedAt.Add(si.ttl)
	claims := &SessionClaims{
		AccountID:     accountID,
		Role:          role,
		ExpiresAtNano: expiresAt.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(expiresAt)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(si.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Verify checks the signature first and the expiry second. It returns
// ErrSignatureInvalid or ErrSessionExpired, wrapping the parser error.
func (si *SessionIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return si.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(si.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	if !token.Valid || claims.AccountID == "" || claims.AccountID != claims.Subject {
		return nil, ErrSignatureInvalid
	}

	expiresAt := time.Unix(0, claims.ExpiresAtNano)
	if claims.ExpiresAtNano == 0 || !ceilSecond(expiresAt).Equal(claims.ExpiresAt.Time) {
		return nil, ErrSignatureInvalid
	}
	if !si.now().Before(expiresAt) {
		return nil, fmt.Errorf("%w: %w", ErrSessionExpired, jwt.ErrTokenExpired)
	}
	return claims, nil
}

// ceilSecond rounds t up to the next whole second.
func ceilSecond(t time.Time) time.Time {
	if s := t.Truncate(time.Second); !s.Equal(t) {
		return s.Add(time.Second)
	}
	return t
}
