// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/securityhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &out
	err := cmd.Run(context.Background(), append([]string{"app"}, args...))
	return out.String(), err
}

func TestTokenIssue(t *testing.T) {
	out, err := run(t, "token", "issue", "--valid-for", "2h")
	require.NoError(t, err)

	token := strings.TrimSpace(out)
	expiresAt, ok := securityhash.New().ExpiresAt(token)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiresAt, 2*time.Second)
}

func TestTokenIssue_RejectsNonPositive(t *testing.T) {
	_, err := run(t, "token", "issue", "--valid-for", "0s")
	assert.Error(t, err)
}

func TestTokenCheck_Valid(t *testing.T) {
	token, err := securityhash.New().Issue()
	require.NoError(t, err)

	out, err := run(t, "token", "check", token)
	require.NoError(t, err)
	assert.Contains(t, out, "reason: valid")
	assert.Contains(t, out, "expires: ")
}

func TestTokenCheck_Expired(t *testing.T) {
	raw := append(bytes.Repeat([]byte{'a'}, securityhash.NonceLength), []byte("##1000")...)
	token := base64.StdEncoding.EncodeToString(raw)

	out, err := run(t, "token", "check", token)
	assert.ErrorIs(t, err, errTokenInvalid)
	assert.Contains(t, out, "reason: expired")
	assert.Contains(t, out, "expires: 1970-01-01T00:16:40Z")
}

func TestTokenCheck_Garbage(t *testing.T) {
	out, err := run(t, "token", "check", "!!!")
	assert.ErrorIs(t, err, errTokenInvalid)
	assert.Contains(t, out, "reason: bad_encoding")
	assert.NotContains(t, out, "expires:")
}

func TestTokenCheck_MissingArgument(t *testing.T) {
	_, err := run(t, "token", "check")
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "accounts.db")

	out, err := run(t, "--database-dsn", dsn, "--log-level", "error", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0 expired tokens")
}
