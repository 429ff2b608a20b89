// Package mailservice is the standalone HTTP front for outbound SMTP mail.
package mailservice

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/neutec/secondhand-backend/internal/errors"
	"github.com/neutec/secondhand-backend/internal/metrics"
	"github.com/neutec/secondhand-backend/internal/middleware"
	"github.com/neutec/secondhand-backend/pkg/mail"
	"github.com/neutec/secondhand-backend/pkg/util"
)

// Info is reported by /status
type Info struct {
	SMTPHost string `json:"smtpHost"`
	From     string `json:"from"`
}

type sendBody struct {
	Receivers   []string `json:"receivers" binding:"required,min=1,dive,email"`
	Subject     string   `json:"subject" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	ContentType string   `json:"contentType" binding:"omitempty,oneof=text html"`
}

type Handler struct {
	sender  mail.Sender
	info    Info
	apiKey  string
	started time.Time
}

// NewHandler builds the relay. A non-empty apiKey must be presented in
// mail.APIKeyHeader on every /send request.
func NewHandler(sender mail.Sender, info Info, apiKey string) *Handler {
	return &Handler{sender: sender, info: info, apiKey: apiKey, started: time.Now()}
}

// Routes builds the service's gin engine
func (h *Handler) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/metrics", metrics.Handler())
	router.POST("/send", h.requireAPIKey(), h.Send)
	return router
}

func (h *Handler) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			c.Next()
			return
		}
		presented := c.GetHeader(mail.APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(h.apiKey)) != 1 {
			middleware.GetLoggerFromContext(c).Warn("Rejected send without valid API key", map[string]interface{}{
				"ip": c.ClientIP(),
			})
			apperrors.Unauthorized(c, "Invalid mail service API key")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Status GET /status
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"smtpHost":      h.info.SMTPHost,
			"from":          h.info.From,
			"uptimeSeconds": int64(time.Since(h.started).Seconds()),
		},
	})
}

// Send POST /send
func (h *Handler) Send(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var body sendBody
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Warn("Invalid send request", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, mail.SendResponse{Success: false, Message: "receivers, subject and content are required"})
		return
	}

	msg := mail.Message{To: body.Receivers, Subject: body.Subject}
	if body.ContentType == "html" {
		msg.HTML = body.Content
	} else {
		msg.Text = body.Content
	}

	if err := h.sender.Send(c.Request.Context(), msg); err != nil {
		log.Error("SMTP delivery failed", err, map[string]interface{}{
			"receivers": len(body.Receivers),
		})
		metrics.MailDeliveries.WithLabelValues("relay", "smtp", metrics.MailResultFailed).Inc()
		c.JSON(http.StatusInternalServerError, mail.SendResponse{Success: false, Message: "failed to send email"})
		return
	}
	metrics.MailDeliveries.WithLabelValues("relay", "smtp", metrics.MailResultSent).Inc()

	resp := mail.SendResponse{Success: true, Message: "email sent"}
	resp.Data.MessageID = util.GenerateRequestID()
	c.JSON(http.StatusOK, resp)
}
