package model

import "errors"

// Client-input error taxonomy shared by every engine component. These are
// surfaced synchronously with a reason and are never retried by the server.
var (
	ErrAlreadyMember   = errors.New("user already belongs to a group")
	ErrNotMember       = errors.New("user is not a member of this group")
	ErrNotEligible     = errors.New("user is not eligible for this action")
	ErrDuplicateRating = errors.New("user already rated this group")
	ErrInvalidScore    = errors.New("invalid rating input")
	ErrNotFound        = errors.New("not found")
)
