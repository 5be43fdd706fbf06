package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrUnavailable marks infrastructure failures. Callers may retry.
	ErrUnavailable = errors.New("store unavailable")
	ErrClosed      = errors.New("store closed")
)
