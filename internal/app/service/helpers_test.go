package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/neutec/secondhand-backend/pkg/mail"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
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

// recordingSender captures messages instead of sending them
type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) Messages() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.sent...)
}

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]{64})`)

// lastResetToken pulls the token out of the most recent reset email
func lastResetToken(t *testing.T, sender *recordingSender) string {
	t.Helper()
	msgs := sender.Messages()
	require.NotEmpty(t, msgs)
	match := tokenInLink.FindStringSubmatch(msgs[len(msgs)-1].Text)
	require.Len(t, match, 2)
	return match[1]
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

// flakyStore wraps a token store and fails Redeem on demand
type flakyStore struct {
	repository.PasswordResetRepository
	redeemErr   error
	redeemCalls int32
}

func (s *flakyStore) Redeem(ctx context.Context, token string, apply repository.RedeemFunc) error {
	atomic.AddInt32(&s.redeemCalls, 1)
	if s.redeemErr != nil {
		return s.redeemErr
	}
	return s.PasswordResetRepository.Redeem(ctx, token, apply)
}

// lockstepStore holds every FindValid caller until all of them have validated
type lockstepStore struct {
	repository.PasswordResetRepository
	validated *sync.WaitGroup
}

func (s *lockstepStore) FindValid(ctx context.Context, token string) (*model.PasswordReset, error) {
	reset, err := s.PasswordResetRepository.FindValid(ctx, token)
	s.validated.Done()
	s.validated.Wait()
	return reset, err
}

// countingUsers counts password writes
type countingUsers struct {
	repository.UserRepository
	updates int32
}

func (u *countingUsers) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	if err := u.UserRepository.UpdatePassword(ctx, email, passwordHash); err != nil {
		return err
	}
	atomic.AddInt32(&u.updates, 1)
	return nil
}

var errBoom = errors.New("boom")
