// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/go-accounts/internal/database"
	"codeberg.org/oliverandrich/go-accounts/internal/models"
	"codeberg.org/oliverandrich/go-accounts/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount creates an unverified test account with a dummy password hash.
func NewTestAccount(t *testing.T, repo *repository.Repository, email string) *models.Account {
	t.Helper()
	account, err := repo.CreateAccount(context.Background(), email, "not-a-real-hash")
	require.NoError(t, err)
	return account
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// Mail is a message captured by MailRecorder.
type Mail struct {
	Kind  string // "verification" or "password_reset"
	To    string
	Token string
}

// MailRecorder records outgoing mail instead of sending it.
type MailRecorder struct {
	Err error // returned from every send when set

	mu   sync.Mutex
	sent []Mail
}

// SendVerification records a verification mail.
func (m *MailRecorder) SendVerification(_ context.Context, to, token string) error {
	return m.record(Mail{Kind: "verification", To: to, Token: token})
}

// SendPasswordReset records a password reset mail.
func (m *MailRecorder) SendPasswordReset(_ context.Context, to, token string) error {
	return m.record(Mail{Kind: "password_reset", To: to, Token: token})
}

func (m *MailRecorder) record(mail Mail) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

// Sent returns all recorded mail.
func (m *MailRecorder) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}

// Last returns the most recent mail and whether there was one.
func (m *MailRecorder) Last() (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Mail{}, false
	}
	return m.sent[len(m.sent)-1], true
}
