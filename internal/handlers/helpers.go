// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/models"
)

// AccountPath is the canonical path of an account resource.
func AccountPath(publicID string) string {
	return "/v1/accounts/" + publicID
}

// Links holds resource links of a response.
type Links struct {
	Self string `json:"self"`
}

// AccountResponse is the public JSON view of an account.
type AccountResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Links           Links      `json:"links"`
}

func newAccountResponse(account *models.Account) AccountResponse {
	return AccountResponse{
		ID:              account.PublicID,
		Email:           account.Email,
		EmailVerified:   account.EmailVerified,
		EmailVerifiedAt: account.EmailVerifiedAt,
		CreatedAt:       account.CreatedAt,
		Links:           Links{Self: AccountPath(account.PublicID)},
	}
}
