package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type otpRepository struct {
	db DBTX
}

// NewOTPRepository creates a Postgres-backed OTPRepository.
func NewOTPRepository(db DBTX) OTPRepository {
	return &otpRepository{db: db}
}

// Create inserts a new code row. The ID is generated when empty.
func (r *otpRepository) Create(ctx context.Context, c *model.OneTimeCode) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	sql := `INSERT INTO one_time_codes (id, account_id, code_hash, issued_at, expires_at, consumed)
            VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.Exec(ctx, sql, c.ID, c.AccountID, c.CodeHash, c.IssuedAt, c.ExpiresAt, c.Consumed); err != nil {
		return fmt.Errorf("failed to create one-time code: %w", err)
	}
	return nil
}

// FindLatestUsable orders by expiry, then by insertion sequence for codes
// issued in the same instant.
func (r *otpRepository) FindLatestUsable(ctx context.Context, accountID string, now time.Time) (*model.OneTimeCode, error) {
	sql := `SELECT id, account_id, code_hash, issued_at, expires_at, consumed
            FROM one_time_codes
            WHERE account_id = $1 AND consumed = FALSE AND expires_at > $2
            ORDER BY expires_at DESC, seq DESC
            LIMIT 1`
	c := &model.OneTimeCode{}
	err := r.db.QueryRow(ctx, sql, accountID, now).Scan(
		&c.ID, &c.AccountID, &c.CodeHash, &c.IssuedAt, &c.ExpiresAt, &c.Consumed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find usable one-time code: %w", err)
	}
	return c, nil
}

func (r *otpRepository) MarkConsumed(ctx context.Context, id string, now time.Time) error {
	sql := `UPDATE one_time_codes SET consumed = TRUE, consumed_at = $2
            WHERE id = $1 AND consumed = FALSE AND expires_at > $2`
	tag, err := r.db.Exec(ctx, sql, id, now)
	if err != nil {
		return fmt.Errorf("failed to mark one-time code consumed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}
