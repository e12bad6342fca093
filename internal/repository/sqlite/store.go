// Package sqlite implements the account and one-time code repositories over a
// single SQLite file, for single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"
	"github.com/IshaNayal/swasth-saathi/internal/repository"
	"github.com/IshaNayal/swasth-saathi/internal/repository/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store owns the SQLite handle. Writes are serialized on one connection so the
// find-or-create transaction and the consumed compare-and-set never interleave.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite file at path and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// migrate applies pending migrations and records them in schema_migrations.
// The migrate instance is left open: closing it would close s.db.
func (s *Store) migrate() error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Accounts returns the account repository backed by this store.
func (s *Store) Accounts() repository.AccountRepository {
	return &accountStore{db: s.db}
}

// Codes returns the one-time code repository backed by this store.
func (s *Store) Codes() repository.OTPRepository {
	return &codeStore{db: s.db}
}

const accountColumns = `id, phone_number, role, COALESCE(preferred_language, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a                    model.Account
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.ID, &a.PhoneNumber, &a.Role, &a.PreferredLanguage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

type accountStore struct {
	db *sql.DB
}

func (r *accountStore) FindOrCreate(ctx context.Context, phone, language string, now time.Time) (*model.Account, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin find or create account: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE phone_number = ?`, phone))
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		account = &model.Account{
			ID:                uuid.NewString(),
			PhoneNumber:       phone,
			Role:              model.RolePatient,
			PreferredLanguage: language,
			CreatedAt:         fromMillis(toMillis(now)),
			UpdatedAt:         fromMillis(toMillis(now)),
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, phone_number, role, preferred_language, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			account.ID, account.PhoneNumber, account.Role, nullable(language), toMillis(now), toMillis(now),
		); err != nil {
			return nil, false, fmt.Errorf("insert account: %w", err)
		}
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("find account by phone: %w", err)
	case language != "" && language != account.PreferredLanguage:
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET preferred_language = ?, updated_at = ? WHERE id = ?`,
			language, toMillis(now), account.ID,
		); err != nil {
			return nil, false, fmt.Errorf("update account language: %w", err)
		}
		account.PreferredLanguage = language
		account.UpdatedAt = fromMillis(toMillis(now))
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit find or create account: %w", err)
	}
	return account, created, nil
}

func (r *accountStore) FindByPhone(ctx context.Context, phone string) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone_number = ?`, phone)
}

func (r *accountStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (r *accountStore) UpdateLanguage(ctx context.Context, id, language string, now time.Time) (*model.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET preferred_language = ?, updated_at = ? WHERE id = ?`,
		nullable(language), toMillis(now), id)
	if err != nil {
		return nil, fmt.Errorf("update account language: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *accountStore) findOne(ctx context.Context, query string, arg any) (*model.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

type codeStore struct {
	db *sql.DB
}

func (r *codeStore) Create(ctx context.Context, c *model.OneTimeCode) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_codes (id, account_id, code_hash, issued_at, expires_at, consumed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.CodeHash, toMillis(c.IssuedAt), toMillis(c.ExpiresAt), c.Consumed,
	); err != nil {
		return fmt.Errorf("insert one-time code: %w", err)
	}
	return nil
}

func (r *codeStore) FindLatestUsable(ctx context.Context, accountID string, now time.Time) (*model.OneTimeCode, error) {
	var (
		c                   model.OneTimeCode
		issuedAt, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, code_hash, issued_at, expires_at, consumed
		 FROM one_time_codes
		 WHERE account_id = ? AND consumed = 0 AND expires_at > ?
		 ORDER BY expires_at DESC, rowid DESC
		 LIMIT 1`,
		accountID, toMillis(now),
	).Scan(&c.ID, &c.AccountID, &c.CodeHash, &issuedAt, &expiresAt, &c.Consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find usable one-time code: %w", err)
	}
	c.IssuedAt = fromMillis(issuedAt)
	c.ExpiresAt = fromMillis(expiresAt)
	return &c, nil
}

func (r *codeStore) MarkConsumed(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE one_time_codes SET consumed = 1, consumed_at = ?
		 WHERE id = ? AND consumed = 0 AND expires_at > ?`,
		toMillis(now), id, toMillis(now))
	if err != nil {
		return fmt.Errorf("mark one-time code consumed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark one-time code consumed: %w", err)
	}
	if n == 0 {
		return repository.ErrAlreadyConsumed
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
