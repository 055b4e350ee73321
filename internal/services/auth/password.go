// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords = loadCommonPasswords()

func loadCommonPasswords() map[string]struct{} {
	set := make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return set
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if password := strings.ToLower(strings.TrimSpace(scanner.Text())); password != "" {
			set[password] = struct{}{}
		}
	}
	return set
}

// PasswordValidator checks new passwords against the account policy.
type PasswordValidator struct {
	MinLength            int
	MaxLength            int // bcrypt only looks at the first 72 bytes
	CheckCommonPasswords bool
	CheckEmailSimilarity bool
}

// DefaultPasswordValidator returns a validator with sensible defaults
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:            10,
		MaxLength:            72,
		CheckCommonPasswords: true,
		CheckEmailSimilarity: true,
	}
}

// ValidationError represents a single password policy violation
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps all violations of a rejected password
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Validate checks password for the account with the given email. It returns
// nil or a *PasswordValidationError.
func (v *PasswordValidator) Validate(password, email string) error {
	var errs []ValidationError

	if len(password) < v.MinLength {
		errs = append(errs, ValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
		})
	}

	if v.MaxLength > 0 && len(password) > v.MaxLength {
		errs = append(errs, ValidationError{
			Code:    "max_length",
			Message: fmt.Sprintf("Password must be at most %d bytes long.", v.MaxLength),
		})
	}

	if isEntirelyNumeric(password) {
		errs = append(errs, ValidationError{
			Code:    "entirely_numeric",
			Message: "Password cannot be entirely numeric.",
		})
	}

	if v.CheckCommonPasswords && isCommonPassword(password) {
		errs = append(errs, ValidationError{
			Code:    "common_password",
			Message: "This password is too common. Please choose a more secure password.",
		})
	}

	if v.CheckEmailSimilarity && isSimilarToEmail(password, email) {
		errs = append(errs, ValidationError{
			Code:    "too_similar",
			Message: "Password is too similar to your email address.",
		})
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}
	return nil
}

// HashPassword hashes a password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(password)]
	return exists
}

// isSimilarToEmail compares the password with the whole address and with its
// local part.
func isSimilarToEmail(password, email string) bool {
	if email == "" || password == "" {
		return false
	}
	passwordLower := strings.ToLower(password)
	emailLower := strings.ToLower(email)
	local, _, _ := strings.Cut(emailLower, "@")

	for _, attr := range []string{emailLower, local} {
		if len(attr) < 3 {
			continue
		}
		if strings.Contains(passwordLower, attr) || strings.Contains(attr, passwordLower) {
			return true
		}
		if similarity(passwordLower, attr) > 0.7 {
			return true
		}
	}
	return false
}

// similarity is the longest common subsequence relative to the longer input.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	return float64(longestCommonSubsequence(a, b)) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
