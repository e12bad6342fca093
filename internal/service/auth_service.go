package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/delivery"
	"github.com/IshaNayal/swasth-saathi/internal/model"
	"github.com/IshaNayal/swasth-saathi/internal/throttle"
	"github.com/IshaNayal/swasth-saathi/internal/utils"
)

const maxLanguageLength = 35

// RequestCodeResult acknowledges a code request. Code is only set when the
// service runs with code echo enabled.
type RequestCodeResult struct {
	Acknowledged bool
	Code         string
}

// RedeemCodeResult is a fresh session for Account.
type RedeemCodeResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *model.Account
}

// ThrottleError is returned when a code was requested inside the resend window.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("%s (retry in %s)", ErrThrottled, e.RetryAfter.Round(time.Second))
}

func (e *ThrottleError) Unwrap() error { return ErrThrottled }

// AuthService provides phone number sign-in with one-time codes
type AuthService interface {
	RequestCode(ctx context.Context, phone, language string) (*RequestCodeResult, error)
	RedeemCode(ctx context.Context, phone, code string) (*RedeemCodeResult, error)
	VerifySession(ctx context.Context, token string) (*utils.SessionClaims, error)
}

// AuthOptions holds optional collaborators. Zero values disable throttling
// and keep codes out of responses. Attempts caps redeem attempts per phone.
// DefaultCountryCode is prefixed to numbers entered without one; when empty
// such numbers are rejected.
type AuthOptions struct {
	Limiter            throttle.Limiter
	Attempts           throttle.Counter
	ReturnCode         bool
	DefaultCountryCode string
}

type authService struct {
	directory   *UserDirectory
	ledger      *OTPLedger
	issuer      *utils.SessionIssuer
	sender      delivery.Sender
	limiter     throttle.Limiter
	attempts    throttle.Counter
	returnCode  bool
	countryCode string
}

// NewAuthService creates a new AuthService
func NewAuthService(directory *UserDirectory, ledger *OTPLedger, issuer *utils.SessionIssuer, sender delivery.Sender, opts AuthOptions) AuthService {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = throttle.Noop{}
	}
	return &authService{
		directory:   directory,
		ledger:      ledger,
		issuer:      issuer,
		sender:      sender,
		limiter:     limiter,
		attempts:    opts.Attempts,
		returnCode:  opts.ReturnCode,
		countryCode: opts.DefaultCountryCode,
	}
}

// RequestCode finds or creates the account for phone, issues a code and
// hands it to the sender.
func (s *authService) RequestCode(ctx context.Context, phone, language string) (*RequestCodeResult, error) {
	phone, err := utils.NormalizePhone(phone, s.countryCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	language, err = normalizeLanguage(language)
	if err != nil {
		return nil, err
	}

	ok, wait, err := s.limiter.Allow(ctx, phone)
	if err != nil {
		// Throttle store errors fail open.
		log.Printf("WARN: resend throttle unavailable for %s: %v", utils.MaskPhone(phone), err)
	} else if !ok {
		log.Printf("INFO: code request for %s throttled for %s", utils.MaskPhone(phone), wait.Round(time.Second))
		return nil, &ThrottleError{RetryAfter: wait}
	}

	account, err := s.directory.FindOrCreate(ctx, phone, language)
	if err != nil {
		log.Printf("ERROR: find-or-create for %s failed: %v", utils.MaskPhone(phone), err)
		s.releaseSlot(ctx, phone)
		return nil, err
	}

	code, issued, err := s.ledger.Issue(ctx, account.ID)
	if err != nil {
		log.Printf("ERROR: issuing code for account %s failed: %v", account.ID, err)
		s.releaseSlot(ctx, phone)
		return nil, err
	}

	if err := s.sender.Deliver(ctx, phone, code); err != nil {
		log.Printf("ERROR: delivering code %s to %s failed: %v", issued.ID, utils.MaskPhone(phone), err)
		s.releaseSlot(ctx, phone)
		return nil, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	result := &RequestCodeResult{Acknowledged: true}
	if s.returnCode {
		result.Code = code
	}
	return result, nil
}

// RedeemCode exchanges a valid code for a session token. Unknown accounts,
// wrong codes and expired codes all return ErrInvalidCredential.
func (s *authService) RedeemCode(ctx context.Context, phone, code string) (*RedeemCodeResult, error) {
	phone, err := utils.NormalizePhone(phone, s.countryCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	code = strings.TrimSpace(code)
	if !utils.IsNumericCode(code) || len(code) > utils.MaxCodeLength {
		return nil, fmt.Errorf("%w: code must be numeric", ErrValidation)
	}

	if s.attempts != nil {
		ok, wait, err := s.attempts.Hit(ctx, phone)
		if err != nil {
			log.Printf("WARN: redeem attempt counter unavailable for %s: %v", utils.MaskPhone(phone), err)
		} else if !ok {
			log.Printf("INFO: redeem for %s blocked for %s after too many attempts", utils.MaskPhone(phone), wait.Round(time.Second))
			return nil, &ThrottleError{RetryAfter: wait}
		}
	}

	account, err := s.directory.Lookup(ctx, phone)
	if errors.Is(err, ErrAccountNotFound) {
		log.Printf("INFO: redeem for %s rejected: %v", utils.MaskPhone(phone), err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if err != nil {
		log.Printf("ERROR: account lookup for %s failed: %v", utils.MaskPhone(phone), err)
		return nil, err
	}

	outcome, err := s.ledger.Redeem(ctx, account.ID, code)
	if err != nil {
		log.Printf("ERROR: redeem for account %s failed: %v", account.ID, err)
		return nil, err
	}
	if outcome != RedeemSuccess {
		log.Printf("INFO: redeem for account %s rejected: %s", account.ID, outcome)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, outcome.Err())
	}

	token, expiresAt, err := s.issuer.Issue(account.ID, account.Role)
	if err != nil {
		log.Printf("ERROR: code redeemed for account %s but session signing failed: %v", account.ID, err)
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	log.Printf("INFO: account %s signed in", account.ID)
	if s.attempts != nil {
		if err := s.attempts.Reset(context.WithoutCancel(ctx), phone); err != nil {
			log.Printf("WARN: resetting redeem attempts for %s failed: %v", utils.MaskPhone(phone), err)
		}
	}

	return &RedeemCodeResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// VerifySession checks token and returns its claims. Every failure is
// ErrUnauthenticated with the reason wrapped alongside.
func (s *authService) VerifySession(ctx context.Context, token string) (*utils.SessionClaims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrSignatureInvalid)
	}
	claims, err := s.issuer.Verify(token)
	if err != nil {
		log.Printf("INFO: session rejected: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return claims, nil
}

// releaseSlot gives the resend slot back after a request that sent nothing,
// so the caller can retry at once.
func (s *authService) releaseSlot(ctx context.Context, phone string) {
	if err := s.limiter.Release(context.WithoutCancel(ctx), phone); err != nil {
		log.Printf("WARN: releasing resend slot for %s failed: %v", utils.MaskPhone(phone), err)
	}
}

func normalizeLanguage(language string) (string, error) {
	language = strings.TrimSpace(language)
	if len(language) > maxLanguageLength {
		return "", fmt.Errorf("%w: language must be at most %d characters", ErrValidation, maxLanguageLength)
	}
	return language, nil
}
