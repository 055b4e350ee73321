// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package securityhash

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant. Useful in tests.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// Unix returns a FixedClock at the given Unix second.
func Unix(sec int64) FixedClock {
	return FixedClock(time.Unix(sec, 0))
}
