// Package mail delivers one-time codes by email.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/service"
	gomail "github.com/wneessen/go-mail"
)

// Config holds SMTP settings. Username doubles as the sender when From is
// empty.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Configured reports whether enough is set to attempt SMTP delivery.
func (c Config) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// SMTPMailer sends codes over authenticated, TLS-required SMTP.
type SMTPMailer struct {
	cfg Config
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

// SendCode implements service.Mailer.
func (m *SMTPMailer) SendCode(ctx context.Context, msg service.CodeMessage) error {
	subject, body := Render(msg)

	email := gomail.NewMsg()
	if err := email.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("mail: to: %w", err)
	}
	email.Subject(subject)
	email.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("mail: client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending them. It is only
// used when SMTP is not configured, so local signups can still complete.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendCode(ctx context.Context, msg service.CodeMessage) error {
	m.Logger.Warn("smtp not configured, logging code instead of sending",
		"to", msg.To, "purpose", msg.Purpose, "code", msg.Code)
	return nil
}

// Render builds the subject and plain-text body for msg.
func Render(msg service.CodeMessage) (subject, body string) {
	minutes := int(msg.TTL.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	greeting := "Hi"
	if name := strings.TrimSpace(msg.Name); name != "" {
		greeting = "Hi " + name
	}

	switch msg.Purpose {
	case domain.CodeReset:
		subject = "Your StudyBuddy password reset code"
		body = fmt.Sprintf("%s,\n\nUse this code to reset your password: %s\n\n"+
			"It expires in %d minutes. If you did not ask for a reset, ignore this email.\n",
			greeting, msg.Code, minutes)
	default:
		subject = "Verify your StudyBuddy account"
		body = fmt.Sprintf("%s,\n\nYour verification code is: %s\n\nIt expires in %d minutes.\n",
			greeting, msg.Code, minutes)
	}
	return subject, body
}
