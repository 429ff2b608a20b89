package mailservice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neutec/secondhand-backend/internal/metrics"
	"github.com/neutec/secondhand-backend/pkg/mail"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func setupServer(t *testing.T, sender mail.Sender) *httptest.Server {
	return setupServerWithKey(t, sender, "")
}

func setupServerWithKey(t *testing.T, sender mail.Sender, apiKey string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(NewHandler(sender, Info{SMTPHost: "smtp.example.com", From: "no-reply@example.com"}, apiKey).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestSend_RoundTripThroughServiceSender(t *testing.T) {
	capture := &captureSender{}
	srv := setupServer(t, capture)
	client := mail.NewServiceSender(srv.URL, 5*time.Second)

	err := client.Send(context.Background(), mail.Message{
		To:      []string{"user@example.com"},
		Subject: "Reset your password",
		HTML:    "<p>hello</p>",
		Text:    "hello",
	})
	require.NoError(t, err)

	require.Len(t, capture.sent, 1)
	assert.Equal(t, []string{"user@example.com"}, capture.sent[0].To)
	assert.Equal(t, "<p>hello</p>", capture.sent[0].HTML)
	assert.Empty(t, capture.sent[0].Text)

	require.NoError(t, client.Health(context.Background()))
}

func TestSend_DeliveryFailure(t *testing.T) {
	srv := setupServer(t, &captureSender{err: errors.New("dial tcp: connection refused")})
	client := mail.NewServiceSender(srv.URL, 5*time.Second)

	err := client.Send(context.Background(), mail.Message{
		To: []string{"user@example.com"}, Subject: "s", Text: "t",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSend_RejectsInvalidBody(t *testing.T) {
	srv := setupServer(t, &captureSender{})

	tests := []struct {
		name string
		body string
	}{
		{name: "No receivers", body: `{"receivers":[],"subject":"s","content":"c"}`},
		{name: "Bad receiver", body: `{"receivers":["nope"],"subject":"s","content":"c"}`},
		{name: "Missing subject", body: `{"receivers":["a@example.com"],"content":"c"}`},
		{name: "Unknown content type", body: `{"receivers":["a@example.com"],"subject":"s","content":"c","contentType":"pdf"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/send", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestStatus(t *testing.T) {
	srv := setupServer(t, &captureSender{})

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSend_RequiresAPIKeyWhenConfigured(t *testing.T) {
	capture := &captureSender{}
	srv := setupServerWithKey(t, capture, "relay-secret")
	msg := mail.Message{To: []string{"user@example.com"}, Subject: "Reset your password", Text: "hello"}

	err := mail.NewServiceSender(srv.URL, 5*time.Second).Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	err = mail.NewServiceSender(srv.URL, 5*time.Second).WithAPIKey("wrong-secret").Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Empty(t, capture.sent)

	err = mail.NewServiceSender(srv.URL, 5*time.Second).WithAPIKey("relay-secret").Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, capture.sent, 1)

	// health and status stay open for probes
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSend_RecordsDeliveryResults(t *testing.T) {
	sent := metrics.MailDeliveries.WithLabelValues("relay", "smtp", metrics.MailResultSent)
	failed := metrics.MailDeliveries.WithLabelValues("relay", "smtp", metrics.MailResultFailed)
	sentBefore, failedBefore := testutil.ToFloat64(sent), testutil.ToFloat64(failed)
	msg := mail.Message{To: []string{"user@example.com"}, Subject: "s", Text: "t"}

	ok := setupServer(t, &captureSender{})
	require.NoError(t, mail.NewServiceSender(ok.URL, 5*time.Second).Send(context.Background(), msg))

	broken := setupServer(t, &captureSender{err: errors.New("smtp down")})
	require.Error(t, mail.NewServiceSender(broken.URL, 5*time.Second).Send(context.Background(), msg))

	assert.Equal(t, sentBefore+1, testutil.ToFloat64(sent))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}
