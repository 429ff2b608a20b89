package mail

import (
	"context"

	"github.com/neutec/secondhand-backend/pkg/logger"
)

// LogSender writes messages to the application log instead of sending them.
// Used in development where no mail transport is configured.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	body := msg.Text
	if body == "" {
		body = msg.HTML
	}
	logger.Info("Email (log transport)", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	logger.Debug("Email body (log transport)", map[string]interface{}{
		"to":   msg.To,
		"body": body,
	})
	return nil
}
