// Package metrics exposes Prometheus counters for the password reset flow
// and the maintenance gate.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "secondhand"

// MailDeliveries result label values
const (
	MailResultSent   = "sent"
	MailResultFailed = "failed"
)

var (
	// ResetRequests counts forgot-password requests by outcome
	// (issued, unknown_account, delivery_failed, error).
	ResetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "requests_total",
		Help:      "Forgot-password requests by outcome.",
	}, []string{"outcome"})

	// ResetCompletions counts reset-password attempts by outcome
	// (success, invalid_token, error).
	ResetCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "completions_total",
		Help:      "Reset-password attempts by outcome.",
	}, []string{"outcome"})

	ExpiredTokensPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password_reset",
		Name:      "expired_tokens_purged_total",
		Help:      "Expired reset tokens removed by the cleanup job.",
	})

	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mail",
		Name:      "deliveries_total",
		Help:      "Outbound emails by kind, mode and result.",
	}, []string{"kind", "mode", "result"})

	MaintenanceBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "maintenance",
		Name:      "blocked_requests_total",
		Help:      "Requests rejected while maintenance mode was on.",
	})

	MaintenanceChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "maintenance",
		Name:      "changes_total",
		Help:      "Maintenance setting changes by action.",
	}, []string{"action"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry for gin
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
