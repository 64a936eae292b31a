// Package mailer delivers sign-in codes.
package mailer

import (
	"context"
	"fmt"
	"fyrewiki/internal/config"
	"fyrewiki/internal/logger"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender, or a log sender when no host is configured.
func New(cfg config.MailConfig, log logger.Logger) Sender {
	if cfg.Host == "" {
		return &LogSender{log: log}
	}
	return &SMTPSender{cfg: cfg}
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	cfg config.MailConfig
}

// Send delivers msg. The context only guards against sending after cancellation.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, Compose(s.cfg.From, msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

// Compose renders msg as an RFC 5322 message.
func Compose(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.ReplaceAll(msg.Subject, "\n", " "))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	log logger.Logger
}

// NewLogSender returns a Sender that logs every message.
func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.With(map[string]interface{}{"to": msg.To, "subject": msg.Subject}).Info(msg.Body)
	return nil
}

// CodeMessage is the sign-in code email.
func CodeMessage(to, firstName, code string) Message {
	return Message{
		To:      to,
		Subject: "Your wiki sign-in code",
		Body:    fmt.Sprintf("Hello %s,\n\nYour sign-in code is %s.\n\nIf you did not try to sign in, you can ignore this email.\n", firstName, code),
	}
}
