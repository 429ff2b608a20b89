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

	"github.com/neutec/secondhand-backend/config"
	"github.com/neutec/secondhand-backend/internal/app/controller"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/app/service"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/neutec/secondhand-backend/internal/middleware"
	"github.com/neutec/secondhand-backend/internal/router"
	"github.com/neutec/secondhand-backend/internal/scheduler"
	ws "github.com/neutec/secondhand-backend/internal/websocket"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/mail"
	"github.com/neutec/secondhand-backend/pkg/redis"
	"github.com/neutec/secondhand-backend/pkg/retry"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	format := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		format = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      format,
		EnableColor: true,
	})

	logger.Info("Starting Secondhand Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"token_store": cfg.PasswordReset.TokenStore,
		"mail":        cfg.Mail.Transport,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is only needed for the redis token store
	var rdb goredis.UniversalClient
	if cfg.PasswordReset.TokenStore == repository.TokenStoreRedis {
		client, err := redis.Init(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		rdb = client
		defer redis.Close()
	}

	sender, err := mail.NewSender(cfg.Mail)
	if err != nil {
		logger.Fatal("Failed to configure mail transport", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	settingRepo := repository.NewSettingRepository(db.GetDB())
	adminLogRepo := repository.NewAdminLogRepository(db.GetDB())
	tokenRepo, err := repository.NewPasswordResetStore(cfg.PasswordReset.TokenStore, db.GetDB(), rdb, repository.PasswordResetOptions{
		SelfHeal: retry.Policy{
			MaxAttempts:    cfg.SelfHeal.MaxAttempts,
			AttemptTimeout: cfg.SelfHeal.AttemptTimeout,
			Backoff:        cfg.SelfHeal.Backoff,
		},
	})
	if err != nil {
		logger.Fatal("Failed to create reset token store", err)
	}

	// Websocket hub for maintenance status subscribers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize services
	notifier := service.NewNotifier(sender, cfg.Mail.ServiceTimeout)
	authService := service.NewAuthService(
		userRepo,
		notifier,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	resetService := service.NewPasswordResetService(
		userRepo,
		service.NewTokenService(tokenRepo, time.Now),
		notifier,
		cfg.PasswordReset.FrontendURL,
	)
	maintenanceService := service.NewMaintenanceService(settingRepo, adminLogRepo, hub)
	adminService := service.NewAdminService(adminLogRepo, tokenRepo)

	// Initialize controllers
	if err := controller.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register request validators", err)
	}
	authController := controller.NewAuthController(authService, resetService)
	maintenanceController := controller.NewMaintenanceController(maintenanceService, hub, cfg.CORS.AllowedOrigins)
	adminController := controller.NewAdminController(maintenanceService, adminService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		authController,
		maintenanceController,
		adminController,
		authMiddleware,
		maintenanceService,
		cfg,
	)
	r.StartCleanup(ctx)

	// Expired token purge
	cleanup := scheduler.NewTokenCleanupScheduler(tokenRepo, cfg.PasswordReset.CleanupSchedule)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start token cleanup scheduler", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	cleanup.Stop()
	cancel()
	notifier.Wait()

	logger.Info("Server stopped successfully")
}
