package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/metrics"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/mail"
	"github.com/neutec/secondhand-backend/pkg/util"
	"gorm.io/gorm"
)

type PasswordResetService interface {
	// RequestReset emails a reset link when the address belongs to an active
	// account. Unknown and inactive addresses also return nil.
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetService struct {
	userRepo    repository.UserRepository
	tokens      TokenService
	notifier    Notifier
	frontendURL string
}

func NewPasswordResetService(
	userRepo repository.UserRepository,
	tokens TokenService,
	notifier Notifier,
	frontendURL string,
) PasswordResetService {
	return &passwordResetService{
		userRepo:    userRepo,
		tokens:      tokens,
		notifier:    notifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	logger.Info("Processing password reset request", map[string]interface{}{
		"email": email,
	})

	// unknown and inactive addresses return nil like a sent email
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.ResetRequests.WithLabelValues("unknown_account").Inc()
			logger.Warn("Password reset requested for non-existent email", map[string]interface{}{
				"email": email,
			})
			return nil
		}
		metrics.ResetRequests.WithLabelValues("error").Inc()
		logger.Error("Failed to find user for password reset", err, map[string]interface{}{
			"email": email,
		})
		return err
	}
	if !user.IsActive() {
		metrics.ResetRequests.WithLabelValues("inactive_account").Inc()
		logger.Warn("Password reset requested for inactive account", map[string]interface{}{
			"user_id": user.ID,
			"status":  user.Status,
		})
		return nil
	}

	token, err := s.tokens.Issue(ctx, email)
	if err != nil {
		metrics.ResetRequests.WithLabelValues("error").Inc()
		return err
	}

	msg, err := mail.PasswordResetMessage(email, mail.PasswordResetData{
		Name:      user.Name,
		ResetLink: s.resetLink(token),
		ExpiresIn: "1 hour",
	})
	if err != nil {
		metrics.ResetRequests.WithLabelValues("error").Inc()
		logger.Error("Failed to render password reset email", err)
		return err
	}

	if err := s.notifier.NotifyCritical(ctx, "password_reset", msg); err != nil {
		metrics.ResetRequests.WithLabelValues("delivery_failed").Inc()
		return err
	}

	metrics.ResetRequests.WithLabelValues("issued").Inc()
	logger.Info("Password reset email sent", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return nil
}

func (s *passwordResetService) resetLink(token string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	logger.Info("Processing password reset with token")

	if _, err := s.tokens.Validate(ctx, token); err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			metrics.ResetCompletions.WithLabelValues("invalid_token").Inc()
		} else {
			metrics.ResetCompletions.WithLabelValues("error").Inc()
		}
		return err
	}

	hashedPassword, err := util.HashPassword(newPassword)
	if err != nil {
		metrics.ResetCompletions.WithLabelValues("error").Inc()
		logger.Error("Failed to hash new password", err)
		return err
	}

	// The token is consumed together with the password write; a concurrent
	// request with the same token loses here.
	var email string
	err = s.tokens.Redeem(ctx, token, func(ctx context.Context, owner string) error {
		email = owner
		return s.userRepo.UpdatePassword(ctx, owner, hashedPassword)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidResetToken):
		metrics.ResetCompletions.WithLabelValues("invalid_token").Inc()
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		// the account was removed after the token was issued
		metrics.ResetCompletions.WithLabelValues("invalid_token").Inc()
		logger.Warn("Reset token refers to a missing account", map[string]interface{}{
			"email": email,
		})
		return ErrInvalidResetToken
	default:
		metrics.ResetCompletions.WithLabelValues("error").Inc()
		return err
	}

	metrics.ResetCompletions.WithLabelValues("success").Inc()
	logger.Info("Password reset successful", map[string]interface{}{
		"email": email,
	})
	return nil
}
