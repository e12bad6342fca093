package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"
	"github.com/IshaNayal/swasth-saathi/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func countCodes(t *testing.T, store *Store, accountID string) int {
	t.Helper()
	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM one_time_codes WHERE account_id = ?`, accountID).Scan(&n))
	return n
}

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpen_RecordsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	store, err := Open(path)
	require.NoError(t, err)
	account, _, err := store.Accounts().FindOrCreate(context.Background(), "9876543210", "", base)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	var (
		version int
		dirty   bool
	)
	require.NoError(t, reopened.db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	assert.Equal(t, 1, version)
	assert.False(t, dirty)

	got, err := reopened.Accounts().FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "reopening keeps existing rows")
}

func TestCloseNilSafe(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}

func TestFindOrCreate_CreatesOnce(t *testing.T) {
	store := openTempStore(t)
	accounts := store.Accounts()
	ctx := context.Background()

	first, created, err := accounts.FindOrCreate(ctx, "9876543210", "hi", base)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.RolePatient, first.Role)
	assert.Equal(t, "hi", first.PreferredLanguage)

	second, created, err := accounts.FindOrCreate(ctx, "9876543210", "", base.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "hi", second.PreferredLanguage)
	assert.Equal(t, base, second.UpdatedAt)
}

func TestFindOrCreate_UpdatesLanguage(t *testing.T) {
	store := openTempStore(t)
	accounts := store.Accounts()
	ctx := context.Background()

	_, _, err := accounts.FindOrCreate(ctx, "9876543210", "hi", base)
	require.NoError(t, err)

	updated, created, err := accounts.FindOrCreate(ctx, "9876543210", "ta", base.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ta", updated.PreferredLanguage)
	assert.Equal(t, base.Add(time.Minute), updated.UpdatedAt)

	stored, err := accounts.FindByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "ta", stored.PreferredLanguage)
}

func TestFindOrCreate_Concurrent(t *testing.T) {
	store := openTempStore(t)
	accounts := store.Accounts()

	var (
		wg      sync.WaitGroup
		created atomic.Int32
		ids     sync.Map
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			account, wasCreated, err := accounts.FindOrCreate(context.Background(), "9876543210", "", base)
			if !assert.NoError(t, err) {
				return
			}
			if wasCreated {
				created.Add(1)
			}
			ids.Store(account.ID, true)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	n := 0
	ids.Range(func(_, _ any) bool { n++; return true })
	assert.Equal(t, 1, n)
}

func TestFindByPhone_NotFound(t *testing.T) {
	store := openTempStore(t)

	account, err := store.Accounts().FindByPhone(context.Background(), "111")
	assert.NoError(t, err)
	assert.Nil(t, account)
}

func TestUpdateLanguage(t *testing.T) {
	store := openTempStore(t)
	accounts := store.Accounts()
	ctx := context.Background()
	account, _, err := accounts.FindOrCreate(ctx, "9876543210", "", base)
	require.NoError(t, err)

	updated, err := accounts.UpdateLanguage(ctx, account.ID, "bn", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "bn", updated.PreferredLanguage)

	missing, err := accounts.UpdateLanguage(ctx, "nope", "bn", base)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func seedAccount(t *testing.T, store *Store) *model.Account {
	t.Helper()
	account, _, err := store.Accounts().FindOrCreate(context.Background(), "9876543210", "", base)
	require.NoError(t, err)
	return account
}

func TestFindLatestUsable_PicksLatestExpiry(t *testing.T) {
	store := openTempStore(t)
	codes := store.Codes()
	ctx := context.Background()
	account := seedAccount(t, store)

	older := &model.OneTimeCode{AccountID: account.ID, CodeHash: "h1", IssuedAt: base, ExpiresAt: base.Add(5 * time.Minute)}
	newer := &model.OneTimeCode{AccountID: account.ID, CodeHash: "h2", IssuedAt: base.Add(time.Minute), ExpiresAt: base.Add(6 * time.Minute)}
	require.NoError(t, codes.Create(ctx, older))
	require.NoError(t, codes.Create(ctx, newer))

	got, err := codes.FindLatestUsable(ctx, account.ID, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, "h2", got.CodeHash)
	assert.Equal(t, newer.ExpiresAt, got.ExpiresAt)

	assert.Equal(t, 2, countCodes(t, store, account.ID))
}

func TestFindLatestUsable_SkipsExpiredAndConsumed(t *testing.T) {
	store := openTempStore(t)
	codes := store.Codes()
	ctx := context.Background()
	account := seedAccount(t, store)

	code := &model.OneTimeCode{AccountID: account.ID, CodeHash: "h1", IssuedAt: base, ExpiresAt: base.Add(5 * time.Minute)}
	require.NoError(t, codes.Create(ctx, code))

	got, err := codes.FindLatestUsable(ctx, account.ID, base.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, got, "expires_at == now is expired")

	require.NoError(t, codes.MarkConsumed(ctx, code.ID, base.Add(time.Minute)))
	got, err = codes.FindLatestUsable(ctx, account.ID, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMarkConsumed_OnlyOnce(t *testing.T) {
	store := openTempStore(t)
	codes := store.Codes()
	ctx := context.Background()
	account := seedAccount(t, store)
	code := &model.OneTimeCode{AccountID: account.ID, CodeHash: "h1", IssuedAt: base, ExpiresAt: base.Add(5 * time.Minute)}
	require.NoError(t, codes.Create(ctx, code))

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		losers  atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := codes.MarkConsumed(ctx, code.ID, base.Add(time.Minute))
			switch {
			case err == nil:
				winners.Add(1)
			case assert.ErrorIs(t, err, repository.ErrAlreadyConsumed):
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(9), losers.Load())
}

func TestMarkConsumed_Expired(t *testing.T) {
	store := openTempStore(t)
	codes := store.Codes()
	ctx := context.Background()
	account := seedAccount(t, store)
	code := &model.OneTimeCode{AccountID: account.ID, CodeHash: "h1", IssuedAt: base, ExpiresAt: base.Add(5 * time.Minute)}
	require.NoError(t, codes.Create(ctx, code))

	err := codes.MarkConsumed(ctx, code.ID, base.Add(10*time.Minute))
	assert.ErrorIs(t, err, repository.ErrAlreadyConsumed)
}
