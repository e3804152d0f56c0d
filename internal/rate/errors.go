package rate

import "errors"

var (
	// ErrRateLimited reports that the window for this key is exhausted.
	// Callers translate it into their own throttle error.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports that the backing store could not be
	// reached; the caller decides whether to fail open or closed.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
