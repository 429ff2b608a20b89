// Package mail delivers outbound email through SMTP, the standalone mail
// service, or the application log.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/neutec/secondhand-backend/config"
)

// ErrNoRecipients is returned when a message has no receivers
var ErrNoRecipients = errors.New("mail: message has no recipients")

// Message is one outbound email
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if m.Subject == "" {
		return errors.New("mail: subject is required")
	}
	if m.HTML == "" && m.Text == "" {
		return errors.New("mail: body is required")
	}
	return nil
}

// Sender delivers a message or reports why it could not
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the Sender selected by MAIL_TRANSPORT
func NewSender(cfg config.MailConfig) (Sender, error) {
	switch cfg.Transport {
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
			FromName: cfg.FromName,
		}), nil
	case "service":
		return NewServiceSender(cfg.ServiceURL, cfg.ServiceTimeout).WithAPIKey(cfg.ServiceAPIKey), nil
	case "log", "":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("mail: unknown transport %q", cfg.Transport)
	}
}
