// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"testing"

	"codeberg.org/oliverandrich/go-accounts/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestNewMessage(t *testing.T) {
	svc, err := NewService(&config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "noreply@example.com",
		FromName: "Accounts",
	}, "https://example.com")
	require.NoError(t, err)

	msg, err := svc.newMessage("user@example.com", verificationSubject, "hello")
	require.NoError(t, err)

	assert.Equal(t, []string{verificationSubject}, msg.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Subject: "+verificationSubject)
	assert.Contains(t, buf.String(), "noreply@example.com")
	assert.Contains(t, buf.String(), "user@example.com")
}

func TestNewMessage_InvalidRecipient(t *testing.T) {
	svc, err := NewService(&config.SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"}, "https://example.com")
	require.NoError(t, err)

	_, err = svc.newMessage("not an address", verificationSubject, "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting to address")
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SMTPConfig
		expected int
	}{
		{"plain without auth", config.SMTPConfig{Port: 25}, 3},
		{"starttls", config.SMTPConfig{Port: 587, TLS: true}, 3},
		{"implicit tls", config.SMTPConfig{Port: 465, TLS: true}, 4},
		{"with auth", config.SMTPConfig{Port: 587, TLS: true, Username: "u", Password: "p"}, 6},
		{"username only", config.SMTPConfig{Port: 587, Username: "u"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &Service{cfg: &tt.cfg}
			assert.Len(t, svc.clientOptions(), tt.expected)
		})
	}
}
