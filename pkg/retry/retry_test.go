package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = Policy{
	MaxAttempts:    3,
	AttemptTimeout: 50 * time.Millisecond,
	Backoff:        time.Millisecond,
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var calls int32
	err := Do(context.Background(), "create table", fastPolicy, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	err := Do(context.Background(), "create table", fastPolicy, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("database is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int32
	cause := errors.New("disk I/O error")

	err := Do(context.Background(), "create table", fastPolicy, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	var calls int32
	policy := Policy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond, Backoff: time.Millisecond}

	start := time.Now()
	err := Do(context.Background(), "slow op", policy, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond) // ignores ctx on purpose
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestDo_StopsWhenParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	err := Do(ctx, "cancelled op", Policy{MaxAttempts: 5, AttemptTimeout: time.Second, Backoff: time.Millisecond},
		func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			cancel()
			return errors.New("interrupted")
		})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	var calls int32
	_ = Do(context.Background(), "op", Policy{}, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("fail")
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
