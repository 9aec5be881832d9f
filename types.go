package goWallet

import (
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/internal/authstate"
	"github.com/MrEthical07/goWallet/sessionkey"
	"github.com/MrEthical07/goWallet/tracker"
)

// Mode selects the gateway flavor.
type Mode = authstate.Mode

const (
	ModeSimulated = authstate.ModeSimulated
	ModeLive      = authstate.ModeLive
)

// Status is the session machine state.
type Status = authstate.Status

const (
	StatusInitializing    = authstate.Initializing
	StatusUnauthenticated = authstate.Unauthenticated
	StatusAuthenticating  = authstate.Authenticating
	StatusAuthenticated   = authstate.Authenticated
	StatusError           = authstate.Error
)

type (
	Identity     = gateway.Identity
	TransferSpec = gateway.TransferSpec
	Network      = gateway.Network
	Token        = gateway.Token
	JobStatus    = gateway.JobStatus
	// JobSnapshot is a copy of a tracked job's record.
	JobSnapshot = tracker.Snapshot
)

const (
	JobPending    = gateway.JobPending
	JobProcessing = gateway.JobProcessing
	JobSucceeded  = gateway.JobSucceeded
	JobFailed     = gateway.JobFailed
)

// Session is a read-only copy of the session state. User and Keys are nil
// unless Authenticated.
type Session struct {
	Status        Status
	Authenticated bool
	User          *Identity
	BearerToken   string
	Keys          *sessionkey.Material
	// Degraded is set when a simulated restore bound a placeholder identity.
	Degraded  bool
	LastError string
	Mode      Mode
}

// Challenge is a pending email verification.
type Challenge struct {
	Email    string
	Token    string
	IssuedAt time.Time
	// ResendAt is when the display countdown reaches zero.
	ResendAt time.Time
}

func sessionFrom(s authstate.Snapshot) Session {
	out := Session{
		Status:        s.Status,
		Authenticated: s.Authenticated,
		LastError:     s.LastError,
		Mode:          s.Mode,
	}
	if !s.Authenticated {
		return out
	}
	user := s.Identity
	out.User = &user
	out.BearerToken = s.Token
	out.Degraded = s.Degraded
	if s.HasKeys {
		keys := s.Keys
		out.Keys = &keys
	}
	return out
}
