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

const accountColumns = `id, phone_number, role, COALESCE(preferred_language, ''), created_at, updated_at`

type accountRepository struct {
	db DBTX
}

// NewAccountRepository creates a Postgres-backed AccountRepository.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

// FindOrCreate upserts on phone_number so concurrent first requests for the
// same number converge on one row.
func (r *accountRepository) FindOrCreate(ctx context.Context, phone, language string, now time.Time) (*model.Account, bool, error) {
	sql := `INSERT INTO accounts (id, phone_number, role, preferred_language, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $5)
            ON CONFLICT (phone_number) DO UPDATE
            SET preferred_language = COALESCE(EXCLUDED.preferred_language, accounts.preferred_language),
                updated_at = CASE
                    WHEN EXCLUDED.preferred_language IS NOT NULL
                     AND EXCLUDED.preferred_language IS DISTINCT FROM accounts.preferred_language
                    THEN EXCLUDED.updated_at
                    ELSE accounts.updated_at
                END
            RETURNING ` + accountColumns + `, (xmax = 0) AS created`
	account := &model.Account{}
	var created bool
	err := r.db.QueryRow(ctx, sql, uuid.NewString(), phone, model.RolePatient, nullableString(language), now).Scan(
		&account.ID, &account.PhoneNumber, &account.Role, &account.PreferredLanguage,
		&account.CreatedAt, &account.UpdatedAt, &created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find or create account: %w", err)
	}
	return account, created, nil
}

// FindByPhone retrieves an account by its phone number
func (r *accountRepository) FindByPhone(ctx context.Context, phone string) (*model.Account, error) {
	sql := `SELECT ` + accountColumns + ` FROM accounts WHERE phone_number = $1`
	return r.scanOne(ctx, "phone", sql, phone)
}

// FindByID retrieves an account by its ID
func (r *accountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	sql := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(ctx, "ID", sql, id)
}

func (r *accountRepository) UpdateLanguage(ctx context.Context, id, language string, now time.Time) (*model.Account, error) {
	sql := `UPDATE accounts SET preferred_language = $2, updated_at = $3 WHERE id = $1
            RETURNING ` + accountColumns
	return r.scanOne(ctx, "ID for update", sql, id, nullableString(language), now)
}

func (r *accountRepository) scanOne(ctx context.Context, by, sql string, args ...any) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRow(ctx, sql, args...).Scan(
		&account.ID, &account.PhoneNumber, &account.Role, &account.PreferredLanguage,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by %s: %w", by, err)
	}
	return account, nil
}
