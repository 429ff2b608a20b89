package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neutec/secondhand-backend/internal/app/service"
	apperrors "github.com/neutec/secondhand-backend/internal/errors"
	"github.com/neutec/secondhand-backend/internal/metrics"
)

// MaintenanceReader is the part of the maintenance service the gate needs
type MaintenanceReader interface {
	GetStatus(ctx context.Context) (*service.MaintenanceStatus, error)
}

// MaintenanceGate rejects every non-exempt request with 503 while maintenance mode is on.
// A path is exempt when it equals an entry or lies below it.
// The setting is read on each request; when it cannot be read the request passes.
func MaintenanceGate(reader MaintenanceReader, exemptPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method == "OPTIONS" || isExemptPath(path, exemptPaths) {
			c.Next()
			return
		}

		log := GetLoggerFromContext(c)

		status, err := reader.GetStatus(c.Request.Context())
		if err != nil {
			log.Error("Failed to read maintenance status, allowing request", err, map[string]interface{}{
				"path": path,
			})
			c.Next()
			return
		}

		if !status.Enabled {
			c.Next()
			return
		}

		metrics.MaintenanceBlocked.Inc()
		log.Debug("Request blocked by maintenance mode", map[string]interface{}{
			"path": path,
		})
		apperrors.ServiceUnavailable(c, status.Message)
		c.Abort()
	}
}

func isExemptPath(path string, exemptPaths []string) bool {
	for _, exempt := range exemptPaths {
		if path == exempt || strings.HasPrefix(path, strings.TrimSuffix(exempt, "/")+"/") {
			return true
		}
	}
	return false
}
