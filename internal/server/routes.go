// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/oliverandrich/go-accounts/internal/handlers"
	"github.com/labstack/echo/v4"
)

func setupRoutes(e *echo.Echo, h *handlers.Handlers, accounts *handlers.AccountHandlers) {
	e.GET("/health", h.Health)

	v1 := e.Group("/v1")

	v1.POST("/accounts", accounts.Register)
	v1.POST("/accounts/verification", accounts.RequestVerification)
	v1.GET("/accounts/verify", accounts.Verify)

	v1.POST("/password-reset", accounts.RequestPasswordReset)
	v1.GET("/password-reset", accounts.CheckPasswordReset)
	v1.POST("/password-reset/confirm", accounts.ConfirmPasswordReset)

	v1.POST("/sessions", accounts.CreateSession)
}
