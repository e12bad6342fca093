package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeCols = []string{"id", "account_id", "code_hash", "issued_at", "expires_at", "consumed"}

func TestOTPRepository_Create_GeneratesID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOTPRepository(mock)
	now := time.Now().UTC()
	code := &model.OneTimeCode{AccountID: "acc-1", CodeHash: "hash", IssuedAt: now, ExpiresAt: now.Add(5 * time.Minute)}

	mock.ExpectExec("INSERT INTO one_time_codes").
		WithArgs(pgxmock.AnyArg(), "acc-1", "hash", now, now.Add(5*time.Minute), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), code)

	require.NoError(t, err)
	assert.NotEmpty(t, code.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_Create_Error(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOTPRepository(mock)

	mock.ExpectExec("INSERT INTO one_time_codes").WillReturnError(errors.New("disk full"))

	err := repo.Create(context.Background(), &model.OneTimeCode{ID: "c1", AccountID: "acc-1"})
	assert.ErrorContains(t, err, "failed to create one-time code")
}

func TestOTPRepository_FindLatestUsable(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOTPRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY expires_at DESC").
		WithArgs("acc-1", now).
		WillReturnRows(pgxmock.NewRows(codeCols).AddRow("c2", "acc-1", "hash2", now, now.Add(5*time.Minute), false))

	code, err := repo.FindLatestUsable(context.Background(), "acc-1", now)

	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, "c2", code.ID)
	assert.Equal(t, "hash2", code.CodeHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_FindLatestUsable_None(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOTPRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM one_time_codes").
		WithArgs("acc-1", now).
		WillReturnError(pgx.ErrNoRows)

	code, err := repo.FindLatestUsable(context.Background(), "acc-1", now)

	assert.NoError(t, err)
	assert.Nil(t, code)
}

func TestOTPRepository_MarkConsumed(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOTPRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE one_time_codes SET consumed").
		WithArgs("c1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkConsumed(context.Background(), "c1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_MarkConsumed_LostRace(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOTPRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE one_time_codes SET consumed").
		WithArgs("c1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkConsumed(context.Background(), "c1", now)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}
