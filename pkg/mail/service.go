package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/neutec/secondhand-backend/pkg/logger"
)

// SendRequest is the body accepted by the mail service's /send endpoint
type SendRequest struct {
	Receivers   []string `json:"receivers"`
	Subject     string   `json:"subject"`
	Content     string   `json:"content"`
	ContentType string   `json:"contentType,omitempty"` // text or html
}

// SendResponse is the mail service's reply
type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

// APIKeyHeader carries the shared secret the mail service checks on /send
const APIKeyHeader = "X-Mail-Service-Key"

// ServiceSender posts messages to the standalone mail service
type ServiceSender struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewServiceSender(baseURL string, timeout time.Duration) *ServiceSender {
	return &ServiceSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithAPIKey sets the secret sent in APIKeyHeader
func (s *ServiceSender) WithAPIKey(key string) *ServiceSender {
	s.apiKey = key
	return s
}

func (s *ServiceSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	req := SendRequest{Receivers: msg.To, Subject: msg.Subject, Content: msg.Text, ContentType: "text"}
	if msg.HTML != "" {
		req.Content = msg.HTML
		req.ContentType = "html"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set(APIKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		logger.Error("Mail service request failed", err, map[string]interface{}{
			"url": s.baseURL,
		})
		return fmt.Errorf("mail service: %w", err)
	}
	defer resp.Body.Close()

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("mail service: invalid response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		return fmt.Errorf("mail service: status %d: %s", resp.StatusCode, result.Message)
	}

	logger.Info("Email sent via mail service", map[string]interface{}{
		"to":         msg.To,
		"subject":    msg.Subject,
		"message_id": result.Data.MessageID,
	})
	return nil
}

// Health checks the mail service's /health endpoint
func (s *ServiceSender) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mail service: unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}
