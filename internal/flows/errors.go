package flows

import "errors"

var (
	// ErrInvalidInput marks a local rejection. No gateway call was made.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable wraps Session Store failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrKeyGeneration wraps session key generation failures.
	ErrKeyGeneration = errors.New("session key generation failed")
)
