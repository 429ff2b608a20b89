package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neutec/secondhand-backend/internal/metrics"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/mail"
)

// ErrDeliveryFailed is returned when a critical email could not be sent
var ErrDeliveryFailed = errors.New("email delivery failed")

// Notifier sends email in one of two modes. Best-effort sends run in the
// background and only log failures; critical sends block and return them.
type Notifier interface {
	NotifyBestEffort(ctx context.Context, kind string, msg mail.Message)
	NotifyCritical(ctx context.Context, kind string, msg mail.Message) error
	// Wait blocks until in-flight best-effort sends finish.
	Wait()
}

type notifier struct {
	sender  mail.Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(sender mail.Sender, timeout time.Duration) Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &notifier{sender: sender, timeout: timeout}
}

func (n *notifier) NotifyBestEffort(ctx context.Context, kind string, msg mail.Message) {
	// detached from the request so the send outlives the response
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		if err := n.sender.Send(sendCtx, msg); err != nil {
			metrics.MailDeliveries.WithLabelValues(kind, "best_effort", metrics.MailResultFailed).Inc()
			logger.Warn("Best-effort email not delivered", map[string]interface{}{
				"kind":  kind,
				"to":    msg.To,
				"error": err.Error(),
			})
			return
		}
		metrics.MailDeliveries.WithLabelValues(kind, "best_effort", metrics.MailResultSent).Inc()
	}()
}

func (n *notifier) NotifyCritical(ctx context.Context, kind string, msg mail.Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.Send(sendCtx, msg); err != nil {
		metrics.MailDeliveries.WithLabelValues(kind, "critical", metrics.MailResultFailed).Inc()
		logger.Error("Critical email not delivered", err, map[string]interface{}{
			"kind": kind,
			"to":   msg.To,
		})
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	metrics.MailDeliveries.WithLabelValues(kind, "critical", metrics.MailResultSent).Inc()
	return nil
}

func (n *notifier) Wait() {
	n.wg.Wait()
}
