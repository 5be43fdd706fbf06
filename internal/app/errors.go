package service

import "errors"

// ErrMissingUser is returned when a command carries no user id.
var ErrMissingUser = errors.New("user id is required")
