package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
	apperrors "github.com/neutec/secondhand-backend/internal/errors"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrResetTokenNotFound is returned for unknown, used and expired tokens alike
	ErrResetTokenNotFound = errors.New("reset token not found")
	// ErrStorageUnavailable wraps any failure of the backing store
	ErrStorageUnavailable = errors.New("token storage unavailable")
)

// PasswordResetRepository stores issued reset tokens.
type PasswordResetRepository interface {
	// Put inserts the token or replaces an existing row with the same token.
	Put(ctx context.Context, token, email string, expiresAt time.Time) error
	// FindValid returns the token only while it is unused and unexpired.
	FindValid(ctx context.Context, token string) (*model.PasswordReset, error)
	// MarkUsed flags the token as consumed. Unknown tokens are not an error.
	MarkUsed(ctx context.Context, token string) error
	// DeleteExpired purges tokens past their expiry and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*model.ResetTokenStats, error)
	// Redeem claims a valid token for one caller and runs apply with its email.
	// The token is marked used only if apply succeeds. Concurrent callers on the
	// same token get ErrResetTokenNotFound while a claim is held or after it is used.
	// Errors returned by apply are passed through unchanged.
	Redeem(ctx context.Context, token string, apply RedeemFunc) error
}

// RedeemFunc applies the credential change for a claimed token.
// Repositories called with ctx take part in the claim's transaction.
type RedeemFunc func(ctx context.Context, email string) error

// redeemLease bounds how long a claim blocks other callers in stores
// without transactions.
const redeemLease = 30 * time.Second

// PasswordResetOptions tunes the relational token store
type PasswordResetOptions struct {
	Clock    func() time.Time
	SelfHeal retry.Policy
}

type passwordResetRepository struct {
	db       *gorm.DB
	clock    func() time.Time
	selfHeal retry.Policy
}

// NewPasswordResetRepository returns a token store on the password_reset_tokens table.
// A missing table is recreated on demand under the SelfHeal policy.
func NewPasswordResetRepository(db *gorm.DB, opts PasswordResetOptions) PasswordResetRepository {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SelfHeal.MaxAttempts == 0 {
		opts.SelfHeal = retry.DefaultPolicy
	}
	return &passwordResetRepository{
		db:       db,
		clock:    opts.Clock,
		selfHeal: opts.SelfHeal,
	}
}

func (r *passwordResetRepository) now() time.Time {
	return r.clock().UTC()
}

func (r *passwordResetRepository) Put(ctx context.Context, token, email string, expiresAt time.Time) error {
	reset := model.PasswordReset{
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.now(),
	}

	err := r.withSelfHeal(ctx, "put", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "expires_at", "used", "created_at"}),
		}).Create(&reset).Error
	})
	if err != nil {
		logger.Error("Failed to store password reset token", err, map[string]interface{}{
			"email": email,
		})
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	logger.Debug("Password reset token stored", map[string]interface{}{
		"email":      email,
		"expires_at": reset.ExpiresAt,
	})
	return nil
}

func (r *passwordResetRepository) FindValid(ctx context.Context, token string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.withSelfHeal(ctx, "find", func(tx *gorm.DB) error {
		return tx.Where("token = ? AND used = ? AND expires_at > ?", token, false, r.now()).
			First(&reset).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResetTokenNotFound
	}
	if err != nil {
		logger.Error("Failed to look up password reset token", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return &reset, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, token string) error {
	var affected int64
	err := r.withSelfHeal(ctx, "mark used", func(tx *gorm.DB) error {
		result := tx.Model(&model.PasswordReset{}).
			Where("token = ?", token).
			Update("used", true)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		logger.Error("Failed to mark password reset token as used", err)
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if affected == 0 {
		logger.Warn("Mark used matched no password reset token")
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.withSelfHeal(ctx, "delete expired", func(tx *gorm.DB) error {
		result := tx.Where("expires_at <= ?", r.now()).Delete(&model.PasswordReset{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		logger.Error("Failed to delete expired password reset tokens", err)
		return 0, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	logger.Debug("Expired password reset tokens deleted", map[string]interface{}{
		"count": deleted,
	})
	return deleted, nil
}

func (r *passwordResetRepository) Stats(ctx context.Context) (*model.ResetTokenStats, error) {
	var stats model.ResetTokenStats
	now := r.now()

	err := r.withSelfHeal(ctx, "stats", func(tx *gorm.DB) error {
		base := tx.Model(&model.PasswordReset{})
		if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
			return err
		}
		if err := base.Session(&gorm.Session{}).Where("used = ?", true).Count(&stats.Used).Error; err != nil {
			return err
		}
		if err := base.Session(&gorm.Session{}).Where("used = ? AND expires_at > ?", false, now).Count(&stats.Active).Error; err != nil {
			return err
		}
		return base.Session(&gorm.Session{}).Where("used = ? AND expires_at <= ?", false, now).Count(&stats.Expired).Error
	})
	if err != nil {
		logger.Error("Failed to count password reset tokens", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return &stats, nil
}

// Redeem flips used in the same transaction as apply, so the credential change
// and the consumed token commit together or not at all.
func (r *passwordResetRepository) Redeem(ctx context.Context, token string, apply RedeemFunc) error {
	var applyErr error
	err := r.withSelfHeal(ctx, "redeem", func(db *gorm.DB) error {
		applyErr = nil
		return db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&model.PasswordReset{}).
				Where("token = ? AND used = ? AND expires_at > ?", token, false, r.now()).
				Update("used", true)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected != 1 {
				return ErrResetTokenNotFound
			}

			var reset model.PasswordReset
			if err := tx.Where("token = ?", token).First(&reset).Error; err != nil {
				return err
			}
			if err := apply(withTx(ctx, tx), reset.Email); err != nil {
				applyErr = err
				return err
			}
			return nil
		})
	})

	switch {
	case err == nil:
		return nil
	case applyErr != nil:
		return applyErr
	case errors.Is(err, ErrResetTokenNotFound):
		return ErrResetTokenNotFound
	default:
		logger.Error("Failed to redeem password reset token", err)
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}

// withSelfHeal runs fn and, when it fails because the table is gone,
// recreates the table and runs fn once more.
func (r *passwordResetRepository) withSelfHeal(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := fn(r.db.WithContext(ctx))
	if err == nil || !apperrors.IsMissingTable(err) {
		return err
	}

	logger.Warn("Password reset token table missing, recreating", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})

	if healErr := EnsurePasswordResetTable(ctx, r.db, r.selfHeal); healErr != nil {
		return healErr
	}
	return fn(r.db.WithContext(ctx))
}

var passwordResetDDL = map[string][]string{
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email VARCHAR(255) NOT NULL,
			token VARCHAR(255) NOT NULL,
			expires_at DATETIME NOT NULL,
			used BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_password_reset_tokens_token ON password_reset_tokens(token)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_email ON password_reset_tokens(email)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expires_at ON password_reset_tokens(expires_at)`,
	},
	"postgres": {
		`CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			token VARCHAR(255) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_password_reset_tokens_token ON password_reset_tokens(token)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_email ON password_reset_tokens(email)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expires_at ON password_reset_tokens(expires_at)`,
	},
}

// EnsurePasswordResetTable creates password_reset_tokens and its indexes if absent,
// retrying under policy.
func EnsurePasswordResetTable(ctx context.Context, db *gorm.DB, policy retry.Policy) error {
	dialect := db.Dialector.Name()
	statements, ok := passwordResetDDL[dialect]
	if !ok {
		return fmt.Errorf("no password reset table definition for dialect %q", dialect)
	}

	return retry.Do(ctx, "create password_reset_tokens table", policy, func(ctx context.Context) error {
		for _, stmt := range statements {
			if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
				return err
			}
		}
		logger.Info("Password reset token table ready", map[string]interface{}{
			"dialect": dialect,
		})
		return nil
	})
}
