package repository

import (
	"context"
	"errors"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"
)

// ErrAlreadyConsumed is returned by MarkConsumed when the compare-and-set on
// the consumed flag loses: the code was consumed or expired in the meantime.
var ErrAlreadyConsumed = errors.New("one-time code already consumed")

// AccountRepository defines operations for account data.
// Finders return (nil, nil) when no row matches.
type AccountRepository interface {
	// FindOrCreate returns the account for phone, creating it with the
	// patient role when absent. A non-empty language replaces the stored one.
	// The bool is true when the account was created by this call.
	FindOrCreate(ctx context.Context, phone, language string, now time.Time) (*model.Account, bool, error)
	FindByPhone(ctx context.Context, phone string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	UpdateLanguage(ctx context.Context, id, language string, now time.Time) (*model.Account, error)
}

// OTPRepository defines operations for one-time code rows.
type OTPRepository interface {
	Create(ctx context.Context, code *model.OneTimeCode) error
	// FindLatestUsable returns the unconsumed code with the latest expiry
	// after now, or (nil, nil).
	FindLatestUsable(ctx context.Context, accountID string, now time.Time) (*model.OneTimeCode, error)
	// MarkConsumed flips consumed from false to true only while the code is
	// unexpired at now. Exactly one concurrent caller succeeds.
	MarkConsumed(ctx context.Context, id string, now time.Time) error
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
