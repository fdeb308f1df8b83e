package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrPlayerNotFound = errors.New("player profile not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrConflict       = errors.New("document already exists")

	// ErrPersistence marks a failed write that is safe to retry as a
	// whole. The finalizer retries the entire batch, never a subset.
	ErrPersistence = errors.New("persistence failure")
)
