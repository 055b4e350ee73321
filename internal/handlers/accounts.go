// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-accounts/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// AccountHandlers contains handlers for accounts, verification and password
// reset.
type AccountHandlers struct {
	svc *auth.Service
}

// NewAccounts creates a new AccountHandlers instance.
func NewAccounts(svc *auth.Service) *AccountHandlers {
	return &AccountHandlers{svc: svc}
}

// CredentialsRequest is the request body for registration and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest is the request body for mailing a link.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetConfirmRequest is the request body for completing a password reset.
type ResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

var accepted = map[string]string{"status": "accepted"}

// Register creates an account and mails a verification link.
func (h *AccountHandlers) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return BadRequest(c, "email and password are required")
	}

	account, err := h.svc.Register(c.Request().Context(), req.Email, req.Password)
	var pve *auth.PasswordValidationError
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return Conflict(c, "email already registered")
	case errors.Is(err, auth.ErrInvalidEmail):
		return UnprocessableEntity(c, "invalid email format", err)
	case errors.As(err, &pve):
		return UnprocessableEntity(c, "password does not meet requirements", err)
	case err != nil:
		slog.ErrorContext(c.Request().Context(), "failed to register account", "error", err)
		return InternalServerError(c)
	}

	c.Response().Header().Set(echo.HeaderLocation, AccountPath(account.PublicID))
	return c.JSON(http.StatusCreated, newAccountResponse(account))
}

// RequestVerification mails a new verification link. The reply does not
// reveal whether the address is registered.
func (h *AccountHandlers) RequestVerification(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}

	if err := h.svc.RequestVerification(c.Request().Context(), req.Email); err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to request verification", "error", err)
	}
	return c.JSON(http.StatusAccepted, accepted)
}

// Verify consumes the token of a verification link.
func (h *AccountHandlers) Verify(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return BadRequest(c, "link expired or invalid")
	}

	_, err := h.svc.VerifyEmail(c.Request().Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) {
		return BadRequest(c, "link expired or invalid")
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to verify email", "error", err)
		return InternalServerError(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "verified"})
}

// RequestPasswordReset mails a password reset link. The reply does not
// reveal whether the address is registered.
func (h *AccountHandlers) RequestPasswordReset(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}

	if err := h.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to request password reset", "error", err)
	}
	return c.JSON(http.StatusAccepted, accepted)
}

// CheckPasswordReset is the target of the mailed reset link. It reports
// whether the token can still be used and leaves it unspent.
func (h *AccountHandlers) CheckPasswordReset(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return BadRequest(c, "link expired or invalid")
	}

	err := h.svc.CheckPasswordReset(c.Request().Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) {
		return BadRequest(c, "link expired or invalid")
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to check password reset", "error", err)
		return InternalServerError(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "valid"})
}

// ConfirmPasswordReset sets a new password using a reset token.
func (h *AccountHandlers) ConfirmPasswordReset(c echo.Context) error {
	var req ResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}
	if req.Token == "" || req.Password == "" {
		return BadRequest(c, "token and password are required")
	}

	err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.Password)
	var pve *auth.PasswordValidationError
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return BadRequest(c, "link expired or invalid")
	case errors.As(err, &pve):
		return UnprocessableEntity(c, "password does not meet requirements", err)
	case err != nil:
		slog.ErrorContext(c.Request().Context(), "failed to reset password", "error", err)
		return InternalServerError(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSession checks credentials and returns the account.
func (h *AccountHandlers) CreateSession(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}

	account, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return Unauthorized(c, "invalid credentials")
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to authenticate", "error", err)
		return InternalServerError(c)
	}

	return c.JSON(http.StatusOK, newAccountResponse(account))
}
