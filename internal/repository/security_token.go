// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/models"
)

// CreateSecurityToken stores the hash of an issued token.
func (r *Repository) CreateSecurityToken(ctx context.Context, accountID int64, purpose models.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO security_tokens (account_id, purpose, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		accountID, purpose, tokenHash, expiresAt.UTC(), time.Now().UTC())
	return wrapError(err)
}

// GetSecurityToken retrieves a token by purpose and hash.
func (r *Repository) GetSecurityToken(ctx context.Context, purpose models.TokenPurpose, tokenHash string) (*models.SecurityToken, error) {
	var token models.SecurityToken
	err := r.q.GetContext(ctx, &token,
		`SELECT * FROM security_tokens WHERE purpose = ? AND token_hash = ?`, purpose, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteSecurityToken deletes a token by ID. It returns ErrNotFound if the
// token was already gone, which makes deletion the single-use guard.
func (r *Repository) DeleteSecurityToken(ctx context.Context, tokenID int64) error {
	return r.deleteOne(ctx, `DELETE FROM security_tokens WHERE id = ?`, tokenID)
}

// DeleteAccountSecurityTokens deletes all tokens of a purpose for an account.
func (r *Repository) DeleteAccountSecurityTokens(ctx context.Context, accountID int64, purpose models.TokenPurpose) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM security_tokens WHERE account_id = ? AND purpose = ?`, accountID, purpose)
	return err
}

// DeleteExpiredSecurityTokens deletes tokens that expired before now and
// returns how many were removed.
func (r *Repository) DeleteExpiredSecurityTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM security_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *Repository) deleteOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
