package scheduler

import (
	"context"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/metrics"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const cleanupTimeout = time.Minute

// TokenCleanupScheduler purges expired password reset tokens on a cron schedule
type TokenCleanupScheduler struct {
	cron     *cron.Cron
	store    repository.PasswordResetRepository
	schedule string
}

// NewTokenCleanupScheduler accepts standard cron specs and descriptors such as "@hourly"
func NewTokenCleanupScheduler(store repository.PasswordResetRepository, schedule string) *TokenCleanupScheduler {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &TokenCleanupScheduler{
		cron:     cron.New(),
		store:    store,
		schedule: schedule,
	}
}

// Start registers the purge job and starts the cron runner
func (s *TokenCleanupScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for reset token cleanup", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Reset token cleanup scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// RunOnce deletes every expired token now
func (s *TokenCleanupScheduler) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpired(ctx)
	if err != nil {
		logger.Error("Scheduled reset token cleanup failed", err)
		return 0, err
	}

	metrics.ExpiredTokensPurged.Add(float64(deleted))
	logger.Info("Expired reset tokens purged", map[string]interface{}{
		"count": deleted,
	})
	return deleted, nil
}

// Stop waits for a running job to finish
func (s *TokenCleanupScheduler) Stop() {
	logger.Info("Stopping reset token cleanup scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Reset token cleanup scheduler stopped")
}
