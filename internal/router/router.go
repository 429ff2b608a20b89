package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neutec/secondhand-backend/config"
	"github.com/neutec/secondhand-backend/internal/app/controller"
	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/metrics"
	"github.com/neutec/secondhand-backend/internal/middleware"
)

type Router struct {
	authController        *controller.AuthController
	maintenanceController *controller.MaintenanceController
	adminController       *controller.AdminController
	authMiddleware        *middleware.AuthMiddleware
	maintenanceReader     middleware.MaintenanceReader
	resetLimiter          *middleware.IPRateLimiter
	config                *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	maintenanceController *controller.MaintenanceController,
	adminController *controller.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	maintenanceReader middleware.MaintenanceReader,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:        authController,
		maintenanceController: maintenanceController,
		adminController:       adminController,
		authMiddleware:        authMiddleware,
		maintenanceReader:     maintenanceReader,
		resetLimiter:          middleware.NewIPRateLimiter(cfg.RateLimit.ResetRequestsPerMinute, cfg.RateLimit.Burst),
		config:                cfg,
	}
}

// StartCleanup prunes idle rate limit entries until ctx is done
func (r *Router) StartCleanup(ctx context.Context) {
	go r.resetLimiter.Run(ctx, time.Minute)
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))
	router.Use(middleware.MaintenanceGate(r.maintenanceReader, r.config.Maintenance.ExemptPaths))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Secondhand API is running",
		})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/forgot-password", r.resetLimiter.Middleware(), r.authController.ForgotPassword)
			auth.POST("/reset-password", r.resetLimiter.Middleware(), r.authController.ResetPassword)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		maintenance := v1.Group("/maintenance")
		{
			maintenance.GET("/status", r.maintenanceController.GetStatus)
			maintenance.GET("/ws", r.maintenanceController.Subscribe)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/maintenance", r.adminController.GetMaintenance)
			admin.POST("/maintenance/toggle", r.adminController.ToggleMaintenance)
			admin.PUT("/maintenance/message", r.adminController.SetMaintenanceMessage)
			admin.GET("/audit-logs", r.adminController.ListAuditLogs)
			admin.GET("/audit-logs/export", r.adminController.ExportAuditLogs)
			admin.GET("/reset-tokens/stats", r.adminController.GetResetTokenStats)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
