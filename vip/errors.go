package vip

import "errors"

var (
	// ErrNotFound means the target player has no grant row.
	ErrNotFound = errors.New("vip: no grant for player")
	// ErrInvalidDuration means the duration was zero or negative.
	ErrInvalidDuration = errors.New("vip: duration must be a positive integer")
	// ErrInvalidUnit means the duration unit is not in the supported set.
	ErrInvalidUnit = errors.New("vip: unrecognized duration unit")
	// ErrInvalidExpiry means an update supplied a zero expiry timestamp.
	ErrInvalidExpiry = errors.New("vip: expiry must be a valid timestamp")
)
