// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements account registration, email verification and
// password reset on top of single-use security tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/models"
	"codeberg.org/oliverandrich/go-accounts/internal/repository"
	"codeberg.org/oliverandrich/go-accounts/internal/services/email"
	"codeberg.org/oliverandrich/go-accounts/internal/services/tokens"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	// ErrInvalidToken covers malformed, expired, unknown and used tokens.
	ErrInvalidToken = tokens.ErrInvalidToken
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Options tunes the service.
type Options struct {
	VerifyTTL  time.Duration // validity of email verification tokens
	ResetTTL   time.Duration // validity of password reset tokens
	BcryptCost int
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		VerifyTTL:  24 * time.Hour,
		ResetTTL:   time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Service handles account registration, email verification, password reset
// and sign-in.
type Service struct {
	repo              *repository.Repository
	tokens            *tokens.Store
	mailer            email.Sender
	opts              Options
	passwordValidator *PasswordValidator
	log               *slog.Logger
}

// NewService creates a new Service. Zero options fall back to DefaultOptions
// and a nil logger to slog.Default.
func NewService(repo *repository.Repository, store *tokens.Store, mailer email.Sender, opts Options, log *slog.Logger) *Service {
	defaults := DefaultOptions()
	if opts.VerifyTTL <= 0 {
		opts.VerifyTTL = defaults.VerifyTTL
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = defaults.ResetTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = defaults.BcryptCost
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:              repo,
		tokens:            store,
		mailer:            mailer,
		opts:              opts,
		passwordValidator: DefaultPasswordValidator(),
		log:               log,
	}
}

// PasswordValidator returns the password validator for use in handlers
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// NormalizeEmail validates an address and returns it trimmed and lowercased.
func NormalizeEmail(address string) (string, error) {
	address = strings.TrimSpace(address)
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(parsed.Address), nil
}

// Register creates a new unverified account and mails a verification link.
// The account is kept when sending fails; the caller can retry through
// RequestVerification.
func (s *Service) Register(ctx context.Context, address, password string) (*models.Account, error) {
	address, err := NormalizeEmail(address)
	if err != nil {
		return nil, err
	}

	if err := s.passwordValidator.Validate(password, address); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.CreateAccount(ctx, address, passwordHash)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.InfoContext(ctx, "register_success", "account_id", account.PublicID)

	if err := s.sendVerification(ctx, account); err != nil {
		s.log.ErrorContext(ctx, "verification_mail_failed", "account_id", account.PublicID, "error", err)
	}

	return account, nil
}

// RequestVerification mails a fresh verification link. Unknown and already
// verified addresses succeed silently so the reply does not reveal which
// addresses are registered.
func (s *Service) RequestVerification(ctx context.Context, address string) error {
	account, err := s.lookup(ctx, address)
	if err != nil || account == nil {
		return err
	}
	if account.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, account)
}

// VerifyEmail consumes a verification token and marks the account verified.
// The token is only spent if the account update succeeds.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.Account, error) {
	var account *models.Account
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		accountID, err := s.tokens.WithRepo(tx).Consume(ctx, models.PurposeVerifyEmail, token)
		if err != nil {
			return err
		}

		if err := tx.MarkEmailVerified(ctx, accountID); err != nil {
			return fmt.Errorf("failed to mark email verified: %w", err)
		}

		account, err = tx.GetAccountByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "email_verified", "account_id", account.PublicID)
	return account, nil
}

// RequestPasswordReset mails a password reset link. Unknown addresses succeed
// silently.
func (s *Service) RequestPasswordReset(ctx context.Context, address string) error {
	account, err := s.lookup(ctx, address)
	if err != nil || account == nil {
		return err
	}

	token, err := s.tokens.Issue(ctx, account.ID, models.PurposeResetPassword, s.opts.ResetTTL)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, account.Email, token); err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}

	s.log.InfoContext(ctx, "password_reset_requested", "account_id", account.PublicID)
	return nil
}

// CheckPasswordReset reports whether a reset token is still usable without
// spending it. It backs the landing page of the mailed link.
func (s *Service) CheckPasswordReset(ctx context.Context, token string) error {
	_, err := s.tokens.Lookup(ctx, models.PurposeResetPassword, token)
	return err
}

// ResetPassword consumes a reset token and sets a new password. The password
// is checked before the token is spent, and the token is spent in the same
// transaction as the password update, so any failure leaves the link usable.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	record, err := s.tokens.Lookup(ctx, models.PurposeResetPassword, token)
	if err != nil {
		return err
	}

	account, err := s.repo.GetAccountByID(ctx, record.AccountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	if err := s.passwordValidator.Validate(newPassword, account.Email); err != nil {
		return err
	}

	passwordHash, err := HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		store := s.tokens.WithRepo(tx)
		if _, err := store.Consume(ctx, models.PurposeResetPassword, token); err != nil {
			return err
		}

		if err := tx.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		if err := store.Revoke(ctx, account.ID, models.PurposeResetPassword); err != nil {
			return fmt.Errorf("failed to revoke reset tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "password_reset", "account_id", account.PublicID)
	return nil
}

// Authenticate checks credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, address, password string) (*models.Account, error) {
	address, err := NormalizeEmail(address)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	account, err := s.repo.GetAccountByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.log.WarnContext(ctx, "login_failed", "reason", "account_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !CheckPassword(account.PasswordHash, password) {
		s.log.WarnContext(ctx, "login_failed", "account_id", account.PublicID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	s.log.InfoContext(ctx, "login_success", "account_id", account.PublicID)
	return account, nil
}

// lookup finds an account by address. It returns (nil, nil) for malformed or
// unknown addresses.
func (s *Service) lookup(ctx context.Context, address string) (*models.Account, error) {
	address, err := NormalizeEmail(address)
	if err != nil {
		return nil, nil //nolint:nilnil // unknown addresses are not an error here
	}

	account, err := s.repo.GetAccountByEmail(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.DebugContext(ctx, "unknown email requested a link")
		return nil, nil //nolint:nilnil // unknown addresses are not an error here
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *Service) sendVerification(ctx context.Context, account *models.Account) error {
	token, err := s.tokens.Issue(ctx, account.ID, models.PurposeVerifyEmail, s.opts.VerifyTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerification(ctx, account.Email, token); err != nil {
		return fmt.Errorf("failed to send verification: %w", err)
	}
	return nil
}
