package ratelimiter

import "errors"

var (
	// ErrInvalidConfig indicates a non-positive limit or window.
	ErrInvalidConfig = errors.New("invalid rate limit configuration")
	// ErrStoreUnavailable wraps failures of the counter backend.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
