// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// TokenPurpose scopes a security token to one flow.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// SecurityToken records an issued token so it can be consumed once.
type SecurityToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64        `db:"id" json:"id"`
	AccountID int64        `db:"account_id" json:"account_id"`
	Purpose   TokenPurpose `db:"purpose" json:"purpose"`
	TokenHash string       `db:"token_hash" json:"-"` // SHA256 hash
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
