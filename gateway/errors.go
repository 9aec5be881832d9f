package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailure is returned when a credential is invalid or expired.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrRateLimited is returned when code issuance or submission is throttled.
	ErrRateLimited = errors.New("too many requests")
	// ErrInvalidEmail is returned when the gateway rejects an email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidCode is returned for a wrong or expired verification code.
	ErrInvalidCode = errors.New("invalid or expired verification code")
	// ErrInvalidChallenge is returned for an unknown or superseded challenge token.
	ErrInvalidChallenge = errors.New("unknown verification challenge")
	// ErrSessionInvalid is returned when a bearer token is no longer honored.
	ErrSessionInvalid = errors.New("session is no longer valid")
	// ErrValidationFailure is returned for malformed transfer parameters.
	ErrValidationFailure = errors.New("invalid transfer parameters")
	// ErrSessionMissing is returned when a transfer is submitted without key material.
	ErrSessionMissing = errors.New("session not configured, please authenticate first")
	// ErrUnknownJob is returned when a job id is not recognized.
	ErrUnknownJob = errors.New("unknown job")
	// ErrTransportFailure is returned when the gateway cannot be reached.
	ErrTransportFailure = errors.New("gateway unreachable")
	// ErrMalformedResponse is returned when a response fails the parse step.
	// It wraps ErrTransportFailure.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrTransportFailure)
)

// Error codes carried on the wire. Each maps onto exactly one sentinel.
const (
	CodeAuthFailure       = "auth_failure"
	CodeRateLimited       = "rate_limited"
	CodeInvalidEmail      = "invalid_email"
	CodeInvalidCode       = "invalid_code"
	CodeInvalidChallenge  = "invalid_challenge"
	CodeSessionInvalid    = "session_invalid"
	CodeValidationFailure = "validation_failure"
	CodeSessionMissing    = "session_missing"
	CodeUnknownJob        = "unknown_job"
)

var codeErrors = map[string]error{
	CodeAuthFailure:       ErrAuthFailure,
	CodeRateLimited:       ErrRateLimited,
	CodeInvalidEmail:      ErrInvalidEmail,
	CodeInvalidCode:       ErrInvalidCode,
	CodeInvalidChallenge:  ErrInvalidChallenge,
	CodeSessionInvalid:    ErrSessionInvalid,
	CodeValidationFailure: ErrValidationFailure,
	CodeSessionMissing:    ErrSessionMissing,
	CodeUnknownJob:        ErrUnknownJob,
}

// ErrorForCode returns the sentinel for a wire error code.
func ErrorForCode(code string) (error, bool) {
	err, ok := codeErrors[code]
	return err, ok
}

// CodeForError returns the wire code for err, or "" when err is not one of
// the contract sentinels.
func CodeForError(err error) string {
	for code, sentinel := range codeErrors {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}
