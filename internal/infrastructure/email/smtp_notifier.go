// Package email provides the outbound-mail implementations of
// ports.Notifier: a plain SMTP sender for real delivery and a log-only
// sender for development environments without a mail relay.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/core/ports"
)

// Config captures the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends account emails through a single SMTP relay.
type SMTPNotifier struct {
	cfg Config
	log zerolog.Logger
}

func NewSMTPNotifier(cfg Config, log zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, log: log}
}

func (n *SMTPNotifier) Send(_ context.Context, msg ports.EmailMessage) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{msg.Recipient}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	n.log.Debug().Str("recipient", msg.Recipient).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// LogNotifier writes the message to the log instead of delivering it.
// Used when no SMTP host is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg ports.EmailMessage) error {
	n.log.Info().
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("email delivery skipped (no SMTP configured)")
	return nil
}
