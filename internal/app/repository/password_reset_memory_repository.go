package repository

import (
	"context"
	"sync"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
)

type memoryPasswordResetRepository struct {
	mu     sync.RWMutex
	clock  func() time.Time
	nextID uint
	tokens map[string]model.PasswordReset
	claims map[string]time.Time // token -> lease expiry
}

// NewMemoryPasswordResetRepository returns a process-local token store.
// Tokens do not survive a restart.
func NewMemoryPasswordResetRepository(clock func() time.Time) PasswordResetRepository {
	if clock == nil {
		clock = time.Now
	}
	return &memoryPasswordResetRepository{
		clock:  clock,
		tokens: make(map[string]model.PasswordReset),
		claims: make(map[string]time.Time),
	}
}

func (r *memoryPasswordResetRepository) Put(_ context.Context, token, email string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID + 1
	if existing, ok := r.tokens[token]; ok {
		id = existing.ID
	} else {
		r.nextID = id
	}

	r.tokens[token] = model.PasswordReset{
		ID:        id,
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.clock().UTC(),
	}
	return nil
}

func (r *memoryPasswordResetRepository) FindValid(_ context.Context, token string) (*model.PasswordReset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reset, ok := r.tokens[token]
	if !ok || !reset.IsValidAt(r.clock()) {
		return nil, ErrResetTokenNotFound
	}
	return &reset, nil
}

func (r *memoryPasswordResetRepository) MarkUsed(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reset, ok := r.tokens[token]; ok {
		reset.Used = true
		r.tokens[token] = reset
	}
	return nil
}

func (r *memoryPasswordResetRepository) Redeem(ctx context.Context, token string, apply RedeemFunc) error {
	r.mu.Lock()
	now := r.clock()
	reset, ok := r.tokens[token]
	if !ok || !reset.IsValidAt(now) || r.claims[token].After(now) {
		r.mu.Unlock()
		return ErrResetTokenNotFound
	}
	r.claims[token] = now.Add(redeemLease)
	r.mu.Unlock()

	err := apply(ctx, reset.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, token)
	if err != nil {
		return err
	}
	if current, ok := r.tokens[token]; ok {
		current.Used = true
		r.tokens[token] = current
	}
	return nil
}

func (r *memoryPasswordResetRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	var deleted int64
	for token, reset := range r.tokens {
		if !now.Before(reset.ExpiresAt) {
			delete(r.tokens, token)
			delete(r.claims, token)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memoryPasswordResetRepository) Stats(_ context.Context) (*model.ResetTokenStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock()
	stats := &model.ResetTokenStats{Total: int64(len(r.tokens))}
	for _, reset := range r.tokens {
		switch {
		case reset.Used:
			stats.Used++
		case now.Before(reset.ExpiresAt):
			stats.Active++
		default:
			stats.Expired++
		}
	}
	return stats, nil
}
