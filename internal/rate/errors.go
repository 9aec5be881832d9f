package rate

import "errors"

var (
	// ErrRateLimited is returned once a window's budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is returned when the counter store fails.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
