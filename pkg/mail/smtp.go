package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/neutec/secondhand-backend/pkg/logger"
)

// SMTPConfig holds SMTP server credentials
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender sends mail with PLAIN auth over STARTTLS
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	body := s.buildMessage(msg)

	// net/smtp has no context support; abandon the send when ctx ends
	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, s.cfg.From, msg.To, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Failed to send email via SMTP", err, map[string]interface{}{
				"to":      msg.To,
				"subject": msg.Subject,
			})
			return fmt.Errorf("smtp send: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}

	logger.Info("Email sent via SMTP", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	return nil
}

func (s *SMTPSender) buildMessage(msg Message) []byte {
	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.From)
	}

	contentType := "text/plain"
	content := msg.Text
	if msg.HTML != "" {
		contentType = "text/html"
		content = msg.HTML
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: %s; charset=\"UTF-8\"\r\n", contentType)
	buf.WriteString("\r\n")
	buf.WriteString(content)
	return buf.Bytes()
}
