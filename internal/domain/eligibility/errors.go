package eligibility

import "errors"

var (
	// ErrUnknownPolicy is returned by ParsePolicy for unrecognised names.
	ErrUnknownPolicy = errors.New("unknown eligibility policy")
	// ErrUnknownAction is returned by Check for actions outside the gate.
	ErrUnknownAction = errors.New("unknown gated action")
)
