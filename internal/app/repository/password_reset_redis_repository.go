package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const resetTokenKeyPrefix = "password_reset:"

// markUsedScript flips the used flag only on a live key so an expired
// token is never recreated without a TTL.
var markUsedScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("HSET", KEYS[1], "used", "1")
end
return 0
`)

// claimScript takes a lease on a live, unused, unexpired and unclaimed token
// and returns its email. ARGV: now, lease expiry (unix nanos).
var claimScript = redis.NewScript(`
local f = redis.call("HMGET", KEYS[1], "email", "expires_at", "used", "claimed_until")
if not f[1] or f[3] == "1" then
	return false
end
if tonumber(f[2]) <= tonumber(ARGV[1]) then
	return false
end
if f[4] and tonumber(f[4]) > tonumber(ARGV[1]) then
	return false
end
redis.call("HSET", KEYS[1], "claimed_until", ARGV[2])
return f[1]
`)

type redisPasswordResetRepository struct {
	client redis.UniversalClient
	clock  func() time.Time
}

// NewRedisPasswordResetRepository returns a token store keeping one hash per
// token that Redis expires at the token's expiry.
func NewRedisPasswordResetRepository(client redis.UniversalClient, clock func() time.Time) PasswordResetRepository {
	if clock == nil {
		clock = time.Now
	}
	return &redisPasswordResetRepository{client: client, clock: clock}
}

func resetTokenKey(token string) string {
	return resetTokenKeyPrefix + token
}

func (r *redisPasswordResetRepository) Put(ctx context.Context, token, email string, expiresAt time.Time) error {
	key := resetTokenKey(token)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"email":      email,
			"expires_at": expiresAt.UTC().UnixNano(),
			"used":       "0",
			"created_at": r.clock().UTC().UnixNano(),
		})
		pipe.PExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		logger.Error("Failed to store password reset token in Redis", err, map[string]interface{}{
			"email": email,
		})
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (r *redisPasswordResetRepository) load(ctx context.Context, key string) (*model.PasswordReset, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrResetTokenNotFound
	}

	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt expires_at: %w", ErrStorageUnavailable, err)
	}
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)

	return &model.PasswordReset{
		Email:     fields["email"],
		Token:     key[len(resetTokenKeyPrefix):],
		ExpiresAt: time.Unix(0, expiresAt).UTC(),
		Used:      fields["used"] == "1",
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}, nil
}

func (r *redisPasswordResetRepository) FindValid(ctx context.Context, token string) (*model.PasswordReset, error) {
	reset, err := r.load(ctx, resetTokenKey(token))
	if err != nil {
		return nil, err
	}
	if !reset.IsValidAt(r.clock()) {
		return nil, ErrResetTokenNotFound
	}
	return reset, nil
}

func (r *redisPasswordResetRepository) MarkUsed(ctx context.Context, token string) error {
	if err := markUsedScript.Run(ctx, r.client, []string{resetTokenKey(token)}).Err(); err != nil {
		logger.Error("Failed to mark password reset token as used in Redis", err)
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (r *redisPasswordResetRepository) Redeem(ctx context.Context, token string, apply RedeemFunc) error {
	key := resetTokenKey(token)
	now := r.clock().UTC()

	email, err := claimScript.Run(ctx, r.client, []string{key},
		now.UnixNano(), now.Add(redeemLease).UnixNano()).Text()
	if errors.Is(err, redis.Nil) {
		return ErrResetTokenNotFound
	}
	if err != nil {
		logger.Error("Failed to claim password reset token in Redis", err)
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := apply(ctx, email); err != nil {
		if relErr := r.client.HDel(ctx, key, "claimed_until").Err(); relErr != nil {
			logger.Warn("Failed to release password reset token claim", map[string]interface{}{
				"error": relErr.Error(),
			})
		}
		return err
	}

	// The credential is stored; a failed mark leaves the claim to expire.
	if err := r.MarkUsed(ctx, token); err != nil {
		logger.Error("Password changed but reset token not marked used", err, map[string]interface{}{
			"email": email,
		})
	}
	return nil
}

// DeleteExpired is a no-op; Redis evicts keys at their expiry.
func (r *redisPasswordResetRepository) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func (r *redisPasswordResetRepository) Stats(ctx context.Context) (*model.ResetTokenStats, error) {
	stats := &model.ResetTokenStats{}
	now := r.clock()

	iter := r.client.Scan(ctx, 0, resetTokenKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		reset, err := r.load(ctx, iter.Val())
		if errors.Is(err, ErrResetTokenNotFound) {
			continue // expired between SCAN and HGETALL
		}
		if err != nil {
			return nil, err
		}

		stats.Total++
		switch {
		case reset.Used:
			stats.Used++
		case now.Before(reset.ExpiresAt):
			stats.Active++
		default:
			stats.Expired++
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return stats, nil
}
