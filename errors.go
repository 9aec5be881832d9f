package goWallet

import (
	"errors"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/internal/flows"
	"github.com/MrEthical07/goWallet/tracker"
)

// Gateway contract errors.
var (
	ErrAuthFailure       = gateway.ErrAuthFailure
	ErrRateLimited       = gateway.ErrRateLimited
	ErrInvalidEmail      = gateway.ErrInvalidEmail
	ErrInvalidCode       = gateway.ErrInvalidCode
	ErrInvalidChallenge  = gateway.ErrInvalidChallenge
	ErrSessionInvalid    = gateway.ErrSessionInvalid
	ErrValidationFailure = gateway.ErrValidationFailure
	ErrSessionMissing    = gateway.ErrSessionMissing
	ErrUnknownJob        = gateway.ErrUnknownJob
	ErrTransportFailure  = gateway.ErrTransportFailure
	ErrMalformedResponse = gateway.ErrMalformedResponse
)

var (
	// ErrInvalidInput marks a local rejection. It is always joined with the
	// matching gateway error, for example ErrInvalidEmail.
	ErrInvalidInput = flows.ErrInvalidInput
	// ErrStoreUnavailable wraps Session Store failures.
	ErrStoreUnavailable = flows.ErrStoreUnavailable
	// ErrPolicyFailure classifies a job failed by the attempt ceiling.
	ErrPolicyFailure = tracker.ErrPolicyFailure
	// ErrJobNotTracked is returned for a job id the current session does not track.
	ErrJobNotTracked = tracker.ErrNotTracked
	// ErrJobCancelled is returned when the session that owned a job was cleared.
	ErrJobCancelled = tracker.ErrCancelled

	ErrLoginInProgress    = errors.New("login already in progress")
	ErrLoginSuperseded    = errors.New("login superseded by logout")
	ErrResendTooSoon      = errors.New("verification code resend not yet allowed")
	ErrNoPendingChallenge = errors.New("no pending verification challenge")
	ErrClientNotReady     = errors.New("client not ready: call Restore first")
	ErrClientClosed       = errors.New("client closed")
)
