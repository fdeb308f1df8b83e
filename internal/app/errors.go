package app

import "errors"

// Sentinel kinds for service-level failures.
var (
	// ErrNotApproved rejects match submissions from identities without
	// an approved league membership.
	ErrNotApproved = errors.New("only approved players can log matches")

	// ErrUserExists rejects duplicate registrations.
	ErrUserExists = errors.New("user already exists")

	// ErrValidation rejects malformed roster and registration input.
	ErrValidation = errors.New("invalid request")
)
