// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"codeberg.org/oliverandrich/go-accounts/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details []auth.ValidationError `json:"details,omitempty"`
}

// renderError writes a JSON error with the given status code and message.
func renderError(c echo.Context, code int, message string) error {
	return c.JSON(code, ErrorResponse{Error: message})
}

// BadRequest writes a 400 error.
func BadRequest(c echo.Context, message string) error {
	return renderError(c, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error.
func Unauthorized(c echo.Context, message string) error {
	return renderError(c, http.StatusUnauthorized, message)
}

// Conflict writes a 409 error.
func Conflict(c echo.Context, message string) error {
	return renderError(c, http.StatusConflict, message)
}

// InternalServerError writes a 500 error.
func InternalServerError(c echo.Context) error {
	return renderError(c, http.StatusInternalServerError, "internal server error")
}

// UnprocessableEntity writes a 422 error. Password policy violations are
// listed in details.
func UnprocessableEntity(c echo.Context, message string, err error) error {
	resp := ErrorResponse{Error: message}
	var pve *auth.PasswordValidationError
	if errors.As(err, &pve) {
		resp.Details = pve.Errors
	}
	return c.JSON(http.StatusUnprocessableEntity, resp)
}
