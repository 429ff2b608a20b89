package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/neutec/secondhand-backend/internal/metrics"
)

// MetricsMiddleware counts requests by matched route and status
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
