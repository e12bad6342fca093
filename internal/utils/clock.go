package utils

import "time"

// Clock returns the current time. Expiry checks for codes and sessions read it
// so tests can move time without sleeping.
type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// orSystem returns c, or SystemClock when c is nil.
func orSystem(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
