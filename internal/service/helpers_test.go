package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/IshaNayal/swasth-saathi/internal/model"
	"github.com/IshaNayal/swasth-saathi/internal/repository"
	"github.com/IshaNayal/swasth-saathi/internal/repository/sqlite"
	"github.com/IshaNayal/swasth-saathi/internal/throttle"
	"github.com/IshaNayal/swasth-saathi/internal/utils"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-0123456789"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSender keeps every delivered code and optionally fails after recording.
type recordingSender struct {
	mu    sync.Mutex
	codes map[string][]string
	err   error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{codes: map[string][]string{}}
}

func (s *recordingSender) Deliver(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = append(s.codes[phone], code)
	return s.err
}

func (s *recordingSender) last(t *testing.T, phone string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.codes[phone]
	require.NotEmpty(t, codes, "no code delivered to %s", phone)
	return codes[len(codes)-1]
}

func (s *recordingSender) count(phone string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes[phone])
}

type stubLimiter struct {
	ok   bool
	wait time.Duration
	err  error
}

func (l stubLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return l.ok, l.wait, l.err
}

func (l stubLimiter) Release(context.Context, string) error { return l.err }

var errProvider = errors.New("provider rejected message")

// countingCodes records successful inserts per account.
type countingCodes struct {
	repository.OTPRepository
	mu      sync.Mutex
	created map[string]int
}

func (c *countingCodes) Create(ctx context.Context, code *model.OneTimeCode) error {
	if err := c.OTPRepository.Create(ctx, code); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created[code.AccountID]++
	return nil
}

func (c *countingCodes) count(accountID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[accountID]
}

type testEnv struct {
	clock     *fakeClock
	store     *sqlite.Store
	codes     *countingCodes
	sender    *recordingSender
	directory *UserDirectory
	ledger    *OTPLedger
	issuer    *utils.SessionIssuer
	auth      AuthService
}

type envOption func(*AuthOptions, *fakeClock)

func withLimiter(l throttle.Limiter) envOption {
	return func(o *AuthOptions, _ *fakeClock) { o.Limiter = l }
}

func withAttempts(max int) envOption {
	return func(o *AuthOptions, clock *fakeClock) {
		o.Attempts = throttle.NewMemoryCounter(max, 5*time.Minute, clock.Now)
	}
}

func withCodeEcho() envOption {
	return func(o *AuthOptions, _ *fakeClock) { o.ReturnCode = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := newFakeClock()
	env := &testEnv{
		clock:  clock,
		store:  store,
		sender: newRecordingSender(),
	}
	env.directory = NewUserDirectory(store.Accounts(), clock.Now)
	env.codes = &countingCodes{OTPRepository: store.Codes(), created: map[string]int{}}
	env.ledger = NewOTPLedger(env.codes, utils.NewCodeHasher(4), 5*time.Minute, 6, clock.Now)
	env.issuer = utils.NewSessionIssuer(testSecret, 7*24*time.Hour, clock.Now)

	authOpts := AuthOptions{DefaultCountryCode: "91"}
	for _, opt := range opts {
		opt(&authOpts, clock)
	}
	env.auth = NewAuthService(env.directory, env.ledger, env.issuer, env.sender, authOpts)
	return env
}

// wrongCode returns a code of the same length that differs from code.
func wrongCode(code string) string {
	b := []byte(code)
	b[0] = '0' + (b[0]-'0'+1)%10
	return string(b)
}
