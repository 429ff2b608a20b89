package service

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokenServiceTest() (TokenService, repository.PasswordResetRepository, *fakeClock) {
	clock := newFakeClock()
	store := repository.NewMemoryPasswordResetRepository(clock.Now)
	return NewTokenService(store, clock.Now), store, clock
}

func TestTokenService_Issue(t *testing.T) {
	tokens, store, clock := setupTokenServiceTest()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	raw, err := hex.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, ResetTokenBytes)
	assert.NotContains(t, token, "user")

	reset, err := store.FindValid(ctx, token)
	require.NoError(t, err)
	assert.True(t, clock.Now().Add(time.Hour).Equal(reset.ExpiresAt))

	other, err := tokens.Issue(ctx, "user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestTokenService_Validate(t *testing.T) {
	tokens, _, _ := setupTokenServiceTest()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	email, err := tokens.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	_, err = tokens.Validate(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		valid   bool
	}{
		{name: "Just issued", elapsed: 0, valid: true},
		{name: "59 minutes", elapsed: 59 * time.Minute, valid: true},
		{name: "One nanosecond before expiry", elapsed: time.Hour - time.Nanosecond, valid: true},
		{name: "Exactly one hour", elapsed: time.Hour, valid: false},
		{name: "Past expiry", elapsed: 2 * time.Hour, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, _, clock := setupTokenServiceTest()
			ctx := context.Background()

			token, err := tokens.Issue(ctx, "user@example.com")
			require.NoError(t, err)

			clock.Advance(tt.elapsed)
			_, err = tokens.Validate(ctx, token)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidResetToken)
			}
		})
	}
}

func TestTokenService_ConsumeIsIdempotent(t *testing.T) {
	tokens, store, _ := setupTokenServiceTest()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, tokens.Consume(ctx, token))
	require.NoError(t, tokens.Consume(ctx, token))

	_, err = tokens.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Used)
	assert.Equal(t, int64(0), stats.Active)
}

func TestTokenService_ConsumeDoesNotReviveExpiredToken(t *testing.T) {
	tokens, _, clock := setupTokenServiceTest()
	ctx := context.Background()

	token, err := tokens.Issue(ctx, "user@example.com")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	require.NoError(t, tokens.Consume(ctx, token))

	_, err = tokens.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
