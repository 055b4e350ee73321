// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/models"
	"github.com/google/uuid"
)

// CreateAccount creates a new unverified account.
func (r *Repository) CreateAccount(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	now := time.Now().UTC()
	account := &models.Account{
		PublicID:     uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := r.q.NamedExecContext(ctx,
		`INSERT INTO accounts (public_id, email, password_hash, created_at, updated_at)
		 VALUES (:public_id, :email, :password_hash, :created_at, :updated_at)`,
		account)
	if err != nil {
		return nil, wrapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	account.ID = id
	return account, nil
}

// GetAccountByID retrieves an account by internal ID.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := r.q.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByPublicID retrieves an account by its public ID.
func (r *Repository) GetAccountByPublicID(ctx context.Context, publicID string) (*models.Account, error) {
	var account models.Account
	if err := r.q.GetContext(ctx, &account, `SELECT * FROM accounts WHERE public_id = ?`, publicID); err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by email, ignoring case.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.q.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// EmailExists checks if an account with the given email exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)`, email)
	return exists, err
}

// MarkEmailVerified marks an account's email as verified.
func (r *Repository) MarkEmailVerified(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return r.updateOne(ctx,
		`UPDATE accounts SET email_verified = 1, email_verified_at = ?, updated_at = ? WHERE id = ?`,
		now, now, id)
}

// UpdatePassword replaces an account's password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.updateOne(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
}

// CountAccounts returns the total number of accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts`)
	return count, err
}

// updateOne runs an UPDATE and reports ErrNotFound if no row matched.
func (r *Repository) updateOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(err)
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
