// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/config"
	"github.com/wneessen/go-mail"
)

const (
	verificationSubject  = "Verify your email address"
	passwordResetSubject = "Reset your password"
)

// Sender delivers security links to account holders.
type Sender interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Links builds the URLs embedded in outgoing mail.
type Links struct {
	baseURL string
}

// NewLinks creates link builders rooted at baseURL.
func NewLinks(baseURL string) Links {
	return Links{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Verification returns the email verification URL for token.
func (l Links) Verification(token string) string {
	return fmt.Sprintf("%s/v1/accounts/verify?token=%s", l.baseURL, url.QueryEscape(token))
}

// PasswordReset returns the password reset URL for token.
func (l Links) PasswordReset(token string) string {
	return fmt.Sprintf("%s/v1/password-reset?token=%s", l.baseURL, url.QueryEscape(token))
}

// Service sends mail via SMTP.
type Service struct {
	cfg   *config.SMTPConfig
	links Links
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, errors.New("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("SMTP from address is required")
	}

	return &Service{
		cfg:   cfg,
		links: NewLinks(baseURL),
	}, nil
}

// SendVerification sends a verification email with the given token.
func (s *Service) SendVerification(ctx context.Context, to, token string) error {
	body := fmt.Sprintf("Please confirm your email address by opening the link below:\n\n%s\n\nIf you did not create an account, you can ignore this message.\n",
		s.links.Verification(token))
	return s.send(ctx, to, verificationSubject, body)
}

// SendPasswordReset sends a password reset email with the given token.
func (s *Service) SendPasswordReset(ctx context.Context, to, token string) error {
	body := fmt.Sprintf("A password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nIf you did not request this, you can ignore this message.\n",
		s.links.PasswordReset(token))
	return s.send(ctx, to, passwordResetSubject, body)
}

// newMessage builds a plain text message.
func (s *Service) newMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)

	return msg, nil
}

// clientOptions maps the SMTP config onto go-mail options.
func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}

	// Use implicit TLS (SSL) for port 465, STARTTLS for others
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg, err := s.newMessage(to, subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// LogSender writes links to the log instead of sending mail. It is used in
// development when no SMTP host is configured.
type LogSender struct {
	log   *slog.Logger
	links Links
}

// NewLogSender creates a LogSender.
func NewLogSender(log *slog.Logger, baseURL string) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log, links: NewLinks(baseURL)}
}

// SendVerification logs the verification link.
func (s *LogSender) SendVerification(ctx context.Context, to, token string) error {
	s.log.InfoContext(ctx, "email not sent (no SMTP host)",
		"kind", "verification",
		"to", to,
		"url", s.links.Verification(token),
	)
	return nil
}

// SendPasswordReset logs the password reset link.
func (s *LogSender) SendPasswordReset(ctx context.Context, to, token string) error {
	s.log.InfoContext(ctx, "email not sent (no SMTP host)",
		"kind", "password_reset",
		"to", to,
		"url", s.links.PasswordReset(token),
	)
	return nil
}
