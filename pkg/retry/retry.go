// Package retry runs an operation under a bounded retry policy with a hard
// per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/neutec/secondhand-backend/pkg/logger"
)

// ErrExhausted is wrapped into the returned error once every attempt failed
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds how an operation is retried
type Policy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration // wait before the second attempt
	Multiplier     float64       // >1 grows the wait exponentially
}

// DefaultPolicy is used for schema self-repair: 3 attempts, 30s each, 2s apart
var DefaultPolicy = Policy{
	MaxAttempts:    3,
	AttemptTimeout: 30 * time.Second,
	Backoff:        2 * time.Second,
}

func (p Policy) backOff() backoff.BackOff {
	if p.Multiplier > 1 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.Backoff
		b.Multiplier = p.Multiplier
		b.RandomizationFactor = 0
		b.MaxInterval = time.Duration(float64(p.Backoff) * p.Multiplier * p.Multiplier)
		return b
	}
	return backoff.NewConstantBackOff(p.Backoff)
}

// Do runs op until it succeeds, the attempts run out, or ctx is done.
// Each attempt gets its own deadline; an attempt that overruns it counts as
// failed even if op ignores its context.
func Do(ctx context.Context, name string, p Policy, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := runAttempt(ctx, p.AttemptTimeout, op)
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retry", map[string]interface{}{
					"operation": name,
					"attempt":   attempt,
				})
			}
			return struct{}{}, nil
		}

		logger.Warn("Operation attempt failed", map[string]interface{}{
			"operation":    name,
			"attempt":      attempt,
			"max_attempts": p.MaxAttempts,
			"error":        err.Error(),
		})
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	)
	if err != nil {
		logger.Error("Operation failed after retries", err, map[string]interface{}{
			"operation": name,
			"attempts":  attempt,
		})
		return fmt.Errorf("%s: %w after %d attempts: %w", name, ErrExhausted, attempt, err)
	}
	return nil
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(attemptCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return fmt.Errorf("attempt timed out after %s: %w", timeout, attemptCtx.Err())
	}
}
