// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package tokens binds security tokens to accounts and makes them single-use.
package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/models"
	"codeberg.org/oliverandrich/go-accounts/internal/repository"
	"codeberg.org/oliverandrich/go-accounts/internal/securityhash"
)

// ErrInvalidToken is returned for malformed, expired, unknown or already
// consumed tokens. Callers must not tell these cases apart to users.
var ErrInvalidToken = errors.New("invalid or expired token")

// Store issues and consumes tokens. Only SHA256 hashes are persisted.
type Store struct {
	repo  *repository.Repository
	codec *securityhash.Codec
	log   *slog.Logger
}

// NewStore creates a new token store.
func NewStore(repo *repository.Repository, codec *securityhash.Codec, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{repo: repo, codec: codec, log: log}
}

// WithRepo returns a copy of the store that runs its queries through repo,
// typically one bound to a transaction.
func (s *Store) WithRepo(repo *repository.Repository) *Store {
	return &Store{repo: repo, codec: s.codec, log: s.log}
}

// Codec returns the underlying codec.
func (s *Store) Codec() *securityhash.Codec {
	return s.codec
}

// Issue creates a token for accountID that is valid for validFor. Earlier
// tokens of the same purpose for the account are revoked. The plaintext token
// is returned once and never stored.
func (s *Store) Issue(ctx context.Context, accountID int64, purpose models.TokenPurpose, validFor time.Duration) (string, error) {
	token, err := s.codec.IssueFor(validFor)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}

	expiresAt, ok := s.codec.ExpiresAt(token)
	if !ok {
		return "", errors.New("issuing token: codec produced an undecodable token")
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.DeleteAccountSecurityTokens(ctx, accountID, purpose); err != nil {
			return fmt.Errorf("revoking previous tokens: %w", err)
		}
		if err := tx.CreateSecurityToken(ctx, accountID, purpose, HashToken(token), expiresAt); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

// Lookup returns the stored record for a valid token without consuming it.
func (s *Store) Lookup(ctx context.Context, purpose models.TokenPurpose, token string) (*models.SecurityToken, error) {
	if res := s.codec.Check(token); res.Reason != securityhash.ReasonValid {
		s.log.DebugContext(ctx, "token rejected",
			"purpose", purpose,
			"reason", res.Reason.String(),
		)
		return nil, ErrInvalidToken
	}

	record, err := s.repo.GetSecurityToken(ctx, purpose, HashToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		s.log.DebugContext(ctx, "token rejected", "purpose", purpose, "reason", "unknown")
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("looking up token: %w", err)
	}
	return record, nil
}

// Consume checks token and deletes it, returning the account it was issued
// for. A token can be consumed only once.
func (s *Store) Consume(ctx context.Context, purpose models.TokenPurpose, token string) (int64, error) {
	record, err := s.Lookup(ctx, purpose, token)
	if err != nil {
		return 0, err
	}

	// A concurrent consume may have won the race
	if err := s.repo.DeleteSecurityToken(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.DebugContext(ctx, "token rejected", "purpose", purpose, "reason", "consumed")
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("consuming token: %w", err)
	}

	return record.AccountID, nil
}

// Revoke deletes all tokens of a purpose for an account.
func (s *Store) Revoke(ctx context.Context, accountID int64, purpose models.TokenPurpose) error {
	return s.repo.DeleteAccountSecurityTokens(ctx, accountID, purpose)
}

// Prune deletes expired tokens by the codec's clock.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	// Tokens stay valid through their expiry second.
	cutoff := s.codec.Clock().Now().Truncate(time.Second)
	n, err := s.repo.DeleteExpiredSecurityTokens(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning tokens: %w", err)
	}
	return n, nil
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
