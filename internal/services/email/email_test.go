// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"testing"

	"codeberg.org/oliverandrich/go-accounts/internal/config"
	"codeberg.org/oliverandrich/go-accounts/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Accounts",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com")

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewService(cfg, "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewService(cfg, "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestLinks(t *testing.T) {
	links := email.NewLinks("https://example.com/")
	token := "q+/w=="

	verify := links.Verification(token)
	reset := links.PasswordReset(token)

	assert.Equal(t, "https://example.com/v1/accounts/verify?token=q%2B%2Fw%3D%3D", verify)
	assert.Equal(t, "https://example.com/v1/password-reset?token=q%2B%2Fw%3D%3D", reset)

	// The token survives a round trip through the query string
	u, err := url.Parse(verify)
	require.NoError(t, err)
	assert.Equal(t, token, u.Query().Get("token"))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sender := email.NewLogSender(logger, "http://localhost:8080")

	err := sender.SendVerification(context.Background(), "user@example.com", "abc=")
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "verification", entry["kind"])
	assert.Equal(t, "user@example.com", entry["to"])
	assert.Equal(t, "http://localhost:8080/v1/accounts/verify?token=abc%3D", entry["url"])
}

func TestLogSender_PasswordReset(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sender := email.NewLogSender(logger, "http://localhost:8080")

	err := sender.SendPasswordReset(context.Background(), "user@example.com", "abc")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"kind":"password_reset"`)
	assert.Contains(t, buf.String(), "/v1/password-reset?token=abc")
}

func TestSenders_ImplementInterface(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com")
	require.NoError(t, err)

	var _ email.Sender = svc
	var _ email.Sender = email.NewLogSender(nil, "https://example.com")
}
