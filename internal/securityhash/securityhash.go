// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package securityhash issues and validates self-contained, time-boxed tokens
// for email verification and password reset links.
//
// A token is the standard base64 encoding of
//
//	nonce (12 raw bytes) || "##" || decimal Unix seconds of expiry
//
// Nothing is stored on the issuing side. A token is valid until its expiry
// second has passed. Binding a token to an account and making it single-use
// is up to the caller.
package securityhash

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	// NonceLength is the number of random bytes in a token.
	NonceLength = 12
	// DefaultValidity is how long a token issued with Issue stays valid.
	DefaultValidity = time.Hour
	// MaxTokenLength bounds the input accepted by Check and Validate.
	MaxTokenLength = 256
	// maxTimestampDigits fits any positive int64.
	maxTimestampDigits = 19
)

// Separator sits between nonce and expiry in the decoded token.
var Separator = []byte("##")

// ErrRandomUnavailable is returned when the random source cannot supply a nonce.
var ErrRandomUnavailable = errors.New("random source unavailable")

var encoding = base64.StdEncoding.Strict()

// Codec issues and checks tokens. A Codec is safe for concurrent use.
type Codec struct {
	clock    Clock
	random   io.Reader
	validity time.Duration
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the clock used for issuing and validating.
func WithClock(c Clock) Option {
	return func(codec *Codec) {
		codec.clock = c
	}
}

// WithRandom sets the nonce source. It must be safe for concurrent reads.
func WithRandom(r io.Reader) Option {
	return func(codec *Codec) {
		codec.random = r
	}
}

// WithValidity sets the validity used by Issue.
func WithValidity(d time.Duration) Option {
	return func(codec *Codec) {
		codec.validity = d
	}
}

// New creates a Codec backed by the system clock and crypto/rand.
func New(opts ...Option) *Codec {
	c := &Codec{
		clock:    SystemClock{},
		random:   rand.Reader,
		validity: DefaultValidity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clock returns the codec's clock.
func (c *Codec) Clock() Clock {
	return c.clock
}

// Validity returns the default validity used by Issue.
func (c *Codec) Validity() time.Duration {
	return c.validity
}

// Issue creates a token valid for the codec's default validity.
func (c *Codec) Issue() (string, error) {
	return c.IssueFor(c.validity)
}

// IssueFor creates a token that expires validFor from now.
func (c *Codec) IssueFor(validFor time.Duration) (string, error) {
	expiresAt := c.clock.Now().Add(validFor).Unix()

	nonce := make([]byte, NonceLength)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomUnavailable, err)
	}

	raw := make([]byte, 0, NonceLength+len(Separator)+maxTimestampDigits)
	raw = append(raw, nonce...)
	raw = append(raw, Separator...)
	raw = strconv.AppendInt(raw, expiresAt, 10)

	return encoding.EncodeToString(raw), nil
}

// Validate reports whether token is well-formed and not yet expired.
// Malformed and expired tokens are indistinguishable here; use Check for the
// reason.
func (c *Codec) Validate(token string) bool {
	return c.Check(token).Reason == ReasonValid
}

// ExpiresAt returns the expiry encoded in a well-formed token, expired or not.
func (c *Codec) ExpiresAt(token string) (time.Time, bool) {
	res := c.Check(token)
	if res.Reason != ReasonValid && res.Reason != ReasonExpired {
		return time.Time{}, false
	}
	return res.ExpiresAt, true
}

// Check decodes token and reports why it is or is not valid.
func (c *Codec) Check(token string) Result {
	if len(token) > MaxTokenLength {
		return Result{Reason: ReasonTooLong}
	}

	// The decoder skips line breaks even in strict mode
	if strings.ContainsAny(token, "\r\n") {
		return Result{Reason: ReasonEncoding}
	}

	raw, err := encoding.DecodeString(token)
	if err != nil {
		return Result{Reason: ReasonEncoding}
	}

	ts, reason := splitExpiry(raw)
	if reason != ReasonValid {
		return Result{Reason: reason}
	}

	sec, err := strconv.ParseInt(string(ts), 10, 64)
	if err != nil {
		return Result{Reason: ReasonTimestamp}
	}

	res := Result{Reason: ReasonValid, ExpiresAt: time.Unix(sec, 0)}
	if sec < c.clock.Now().Unix() {
		res.Reason = ReasonExpired
	}
	return res
}

// splitExpiry extracts the timestamp digits from a decoded token.
// The fixed nonce width is tried first so that a nonce containing the
// separator bytes still parses. Tokens with another nonce width fall back to
// a literal split, which must yield exactly two pieces.
func splitExpiry(raw []byte) ([]byte, Reason) {
	head := NonceLength + len(Separator)
	if len(raw) > head && bytes.Equal(raw[NonceLength:head], Separator) && isDigits(raw[head:]) {
		return raw[head:], ReasonValid
	}

	parts := bytes.Split(raw, Separator)
	if len(parts) != 2 {
		return nil, ReasonLayout
	}
	if !isDigits(parts[1]) {
		return nil, ReasonTimestamp
	}
	return parts[1], ReasonValid
}

func isDigits(b []byte) bool {
	if len(b) == 0 || len(b) > maxTimestampDigits {
		return false
	}
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
