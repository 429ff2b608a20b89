package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neutec/secondhand-backend/config"
	"github.com/neutec/secondhand-backend/internal/mailservice"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/mail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:  "info",
		Format: "json",
	})
	gin.SetMode(cfg.Server.GinMode)

	port := os.Getenv("MAIL_SERVICE_PORT")
	if port == "" {
		port = "3001"
	}

	if cfg.Mail.ServiceAPIKey == "" {
		if cfg.Server.Environment == "production" {
			logger.Fatal("MAIL_SERVICE_API_KEY is required in production", nil)
		}
		logger.Warn("MAIL_SERVICE_API_KEY not set; /send accepts unauthenticated requests")
	}

	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.SMTPUser,
		Password: cfg.Mail.SMTPPassword,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	})
	handler := mailservice.NewHandler(sender, mailservice.Info{
		SMTPHost: cfg.Mail.SMTPHost,
		From:     cfg.Mail.From,
	}, cfg.Mail.ServiceAPIKey)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: handler.Routes(),
	}

	go func() {
		logger.Info("Mail service started", map[string]interface{}{
			"address":   srv.Addr,
			"smtp_host": cfg.Mail.SMTPHost,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start mail service", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Mail service forced to shutdown", err)
	}
	logger.Info("Mail service stopped")
}
