// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_JSONHidesSecrets(t *testing.T) {
	account := models.Account{
		ID:           42,
		PublicID:     "6f1c0f5e-9a51-4b8e-9a0e-0c4a3c7d9b10",
		Email:        "user@example.com",
		PasswordHash: "$2a$10$secret",
		CreatedAt:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(account)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, account.PublicID, out["id"])
	assert.Equal(t, "user@example.com", out["email"])
	assert.Equal(t, false, out["email_verified"])
	assert.NotContains(t, out, "password_hash")
	assert.NotContains(t, out, "email_verified_at")
	assert.NotContains(t, string(data), "secret")
}

func TestSecurityToken_JSONHidesHash(t *testing.T) {
	token := models.SecurityToken{
		ID:        1,
		AccountID: 2,
		Purpose:   models.PurposeResetPassword,
		TokenHash: "deadbeef",
	}

	data, err := json.Marshal(token)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"purpose":"reset_password"`)
	assert.NotContains(t, string(data), "deadbeef")
}
