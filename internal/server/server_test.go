// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/config"
	"codeberg.org/oliverandrich/go-accounts/internal/services/email"
	"codeberg.org/oliverandrich/go-accounts/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "localhost",
			Port:        8080,
			BaseURL:     "http://localhost:8080",
			MaxBodySize: 1,
		},
		Token: config.TokenConfig{
			VerifyTTL: time.Hour,
			ResetTTL:  time.Hour,
		},
	}
}

func newTestApp(t *testing.T) (*App, *testutil.MailRecorder) {
	t.Helper()
	db, _ := testutil.NewTestDB(t)
	mailer := &testutil.MailRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(testConfig(), db, mailer, log), mailer
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestApp_Health(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(t, app.Echo, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestApp_AccountLifecycle(t *testing.T) {
	app, mailer := newTestApp(t)
	e := app.Echo
	credentials := `{"email":"alice@example.com","password":"correct-horse-battery"}`

	rec := doJSON(t, e, http.MethodPost, "/v1/accounts", credentials, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account struct {
		ID            string `json:"id"`
		EmailVerified bool   `json:"email_verified"`
		Links         struct {
			Self string `json:"self"`
		} `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "/v1/accounts/"+account.ID, account.Links.Self)

	rec = doJSON(t, e, http.MethodPost, "/v1/accounts", credentials, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	mail, ok := mailer.Last()
	require.True(t, ok)
	rec = doJSON(t, e, http.MethodGet, "/v1/accounts/verify?token="+url.QueryEscape(mail.Token), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"verified"}`, rec.Body.String())

	rec = doJSON(t, e, http.MethodGet, "/v1/accounts/verify?token="+url.QueryEscape(mail.Token), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The caller's own account is linked as /v1/me
	rec = doJSON(t, e, http.MethodPost, "/v1/sessions", credentials, http.Header{HeaderAccountID: {account.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.True(t, account.EmailVerified)
	assert.Equal(t, MePath, account.Links.Self)
}

func TestApp_PasswordReset(t *testing.T) {
	app, mailer := newTestApp(t)
	e := app.Echo

	rec := doJSON(t, e, http.MethodPost, "/v1/accounts", `{"email":"alice@example.com","password":"correct-horse-battery"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/password-reset", `{"email":"alice@example.com"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = doJSON(t, e, http.MethodPost, "/v1/password-reset", `{"email":"nobody@example.com"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	mail, ok := mailer.Last()
	require.True(t, ok)
	require.Equal(t, "password_reset", mail.Kind)

	body, err := json.Marshal(map[string]string{"token": mail.Token, "password": "brand-new-secret-42"})
	require.NoError(t, err)
	rec = doJSON(t, e, http.MethodPost, "/v1/password-reset/confirm", string(body), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/sessions", `{"email":"alice@example.com","password":"brand-new-secret-42"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, e, http.MethodPost, "/v1/sessions", `{"email":"alice@example.com","password":"correct-horse-battery"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApp_MailedLinksResolve(t *testing.T) {
	app, mailer := newTestApp(t)
	e := app.Echo
	links := email.NewLinks(testConfig().Server.BaseURL)

	rec := doJSON(t, e, http.MethodPost, "/v1/accounts", `{"email":"alice@example.com","password":"correct-horse-battery"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, e, http.MethodPost, "/v1/password-reset", `{"email":"alice@example.com"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	mail, ok := mailer.Last()
	require.True(t, ok)
	require.Equal(t, "password_reset", mail.Kind)

	link, err := url.Parse(links.PasswordReset(mail.Token))
	require.NoError(t, err)
	rec = doJSON(t, e, http.MethodGet, link.RequestURI(), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"valid"}`, rec.Body.String())

	// Following the link leaves the token usable for the confirm step
	body, err := json.Marshal(map[string]string{"token": mail.Token, "password": "brand-new-secret-42"})
	require.NoError(t, err)
	rec = doJSON(t, e, http.MethodPost, "/v1/password-reset/confirm", string(body), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodGet, link.RequestURI(), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"link expired or invalid"}`, rec.Body.String())
}

func TestApp_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(t, app.Echo, http.MethodGet, "/v1/unknown", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewMailer(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := testConfig()
	mailer, err := NewMailer(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &email.LogSender{}, mailer)
	assert.Contains(t, buf.String(), "no SMTP host configured")

	cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}
	mailer, err = NewMailer(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &email.Service{}, mailer)

	cfg.SMTP.From = ""
	_, err = NewMailer(cfg, log)
	assert.Error(t, err)
}
