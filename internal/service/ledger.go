package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"
	"github.com/IshaNayal/swasth-saathi/internal/repository"
	"github.com/IshaNayal/swasth-saathi/internal/utils"
)

// RedeemOutcome is the result of a redemption attempt that reached storage.
type RedeemOutcome int

const (
	RedeemSuccess RedeemOutcome = iota
	RedeemCodeExpired
	RedeemCodeInvalid
)

func (o RedeemOutcome) String() string {
	switch o {
	case RedeemSuccess:
		return "success"
	case RedeemCodeExpired:
		return "code_expired"
	case RedeemCodeInvalid:
		return "code_invalid"
	default:
		return fmt.Sprintf("RedeemOutcome(%d)", int(o))
	}
}

// Err returns the internal reason for a failed outcome, or nil on success.
func (o RedeemOutcome) Err() error {
	switch o {
	case RedeemSuccess:
		return nil
	case RedeemCodeExpired:
		return ErrCodeExpired
	default:
		return ErrCodeInvalid
	}
}

// OTPLedger issues and redeems one-time codes. Issuing a new code leaves
// older live codes in place; redemption only ever matches the latest one.
type OTPLedger struct {
	repo       repository.OTPRepository
	hasher     *utils.CodeHasher
	ttl        time.Duration
	codeLength int
	now        utils.Clock
}

// NewOTPLedger creates an OTPLedger. A nil clock uses the system clock.
func NewOTPLedger(repo repository.OTPRepository, hasher *utils.CodeHasher, ttl time.Duration, codeLength int, now utils.Clock) *OTPLedger {
	if now == nil {
		now = utils.SystemClock
	}
	return &OTPLedger{repo: repo, hasher: hasher, ttl: ttl, codeLength: codeLength, now: now}
}

// Issue stores a hash of a fresh code for accountID and returns the plaintext.
func (l *OTPLedger) Issue(ctx context.Context, accountID string) (string, *model.OneTimeCode, error) {
	code, err := utils.GenerateNumericCode(l.codeLength)
	if err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	hash, err := l.hasher.Hash(code)
	if err != nil {
		return "", nil, err
	}

	issuedAt := l.now()
	row := &model.OneTimeCode{
		AccountID: accountID,
		CodeHash:  hash,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(l.ttl),
	}
	if err := l.repo.Create(ctx, row); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return code, row, nil
}

// Redeem checks candidate against the latest usable code for accountID and
// consumes it on a match. A mismatch leaves the code usable. The error is
// non-nil only for infrastructure failures.
func (l *OTPLedger) Redeem(ctx context.Context, accountID, candidate string) (RedeemOutcome, error) {
	now := l.now()
	latest, err := l.repo.FindLatestUsable(ctx, accountID, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if latest == nil || !latest.Usable(now) {
		return RedeemCodeExpired, nil
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !l.hasher.Matches(candidate, latest.CodeHash) {
		return RedeemCodeInvalid, nil
	}

	if err := l.repo.MarkConsumed(ctx, latest.ID, now); err != nil {
		if errors.Is(err, repository.ErrAlreadyConsumed) {
			return RedeemCodeInvalid, nil
		}
		return 0, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return RedeemSuccess, nil
}
