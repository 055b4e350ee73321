// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package securityhash

import "time"

// Reason explains the outcome of Check. It is meant for logs and operator
// tooling, never for end users.
type Reason int

const (
	ReasonValid Reason = iota
	ReasonTooLong
	ReasonEncoding
	ReasonLayout
	ReasonTimestamp
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonValid:
		return "valid"
	case ReasonTooLong:
		return "too_long"
	case ReasonEncoding:
		return "bad_encoding"
	case ReasonLayout:
		return "bad_layout"
	case ReasonTimestamp:
		return "bad_timestamp"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Result is the outcome of Check. ExpiresAt is zero unless the token decoded.
type Result struct {
	ExpiresAt time.Time
	Reason    Reason
}
