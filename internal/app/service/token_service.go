package service

import (
	"context"
	"errors"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/util"
)

// ErrInvalidResetToken is the single verdict for unknown, used and expired tokens
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

const (
	// ResetTokenExpiry is how long an issued reset token stays valid
	ResetTokenExpiry = 1 * time.Hour
	// ResetTokenBytes is the entropy of a reset token; the hex form is twice as long
	ResetTokenBytes = 32
)

// TokenService is the only component that creates or consumes reset tokens.
type TokenService interface {
	Issue(ctx context.Context, email string) (string, error)
	// Validate returns the email the token was issued for.
	Validate(ctx context.Context, token string) (string, error)
	// Consume marks the token used. It does not authorize anything;
	// call it only after the password change is stored.
	Consume(ctx context.Context, token string) error
	// Redeem runs apply for the token's email and consumes the token once apply
	// succeeds. Only one caller can redeem a token.
	Redeem(ctx context.Context, token string, apply repository.RedeemFunc) error
}

type tokenService struct {
	store repository.PasswordResetRepository
	clock func() time.Time
}

func NewTokenService(store repository.PasswordResetRepository, clock func() time.Time) TokenService {
	if clock == nil {
		clock = time.Now
	}
	return &tokenService{store: store, clock: clock}
}

func (s *tokenService) Issue(ctx context.Context, email string) (string, error) {
	token, err := util.GenerateSecureToken(ResetTokenBytes)
	if err != nil {
		logger.Error("Failed to generate reset token", err, map[string]interface{}{
			"email": email,
		})
		return "", err
	}

	expiresAt := s.clock().UTC().Add(ResetTokenExpiry)
	if err := s.store.Put(ctx, token, email, expiresAt); err != nil {
		return "", err
	}

	logger.Info("Password reset token issued", map[string]interface{}{
		"email":      email,
		"expires_at": expiresAt,
	})
	return token, nil
}

func (s *tokenService) Validate(ctx context.Context, token string) (string, error) {
	reset, err := s.store.FindValid(ctx, token)
	if errors.Is(err, repository.ErrResetTokenNotFound) {
		logger.Warn("Invalid or expired reset token presented")
		return "", ErrInvalidResetToken
	}
	if err != nil {
		return "", err
	}
	return reset.Email, nil
}

func (s *tokenService) Consume(ctx context.Context, token string) error {
	return s.store.MarkUsed(ctx, token)
}

func (s *tokenService) Redeem(ctx context.Context, token string, apply repository.RedeemFunc) error {
	err := s.store.Redeem(ctx, token, apply)
	if errors.Is(err, repository.ErrResetTokenNotFound) {
		logger.Warn("Reset token already redeemed or no longer valid")
		return ErrInvalidResetToken
	}
	return err
}
