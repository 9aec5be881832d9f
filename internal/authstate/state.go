package authstate

import (
	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/sessionkey"
)

// Status is the machine state.
type Status uint8

const (
	Initializing Status = iota
	Unauthenticated
	Authenticating
	Authenticated
	Error
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Mode selects the gateway flavor. It is independent of Status.
type Mode uint8

const (
	ModeSimulated Mode = iota
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}
	return "simulated"
}

// Snapshot is the whole session state.
type Snapshot struct {
	Status Status
	// Authenticated is true only while Token and Identity are both set.
	Authenticated bool
	Identity      gateway.Identity
	Token         string
	Keys          sessionkey.Material
	HasKeys       bool
	// Degraded marks a simulated restore whose revalidation failed.
	Degraded  bool
	LastError string
	Mode      Mode
}

// Kind names an event.
type Kind uint8

const (
	LoginStarted Kind = iota + 1
	LoginSucceeded
	LoginFailed
	ErrorRaised
	RestoreEmpty
	LoggedOut
	ErrorCleared
	ModeChanged
)

// Event drives Reduce. Only the fields relevant to Kind are read.
type Event struct {
	Kind     Kind
	Identity gateway.Identity
	Token    string
	Keys     sessionkey.Material
	HasKeys  bool
	Degraded bool
	Err      string
	Mode     Mode
}

// Reduce returns the state after e. It never mutates s.
func Reduce(s Snapshot, e Event) Snapshot {
	switch e.Kind {
	case LoginStarted:
		s.Status = Authenticating
		return s

	case LoginSucceeded:
		if e.Token == "" || e.Identity.UserID == "" {
			return Reduce(s, Event{Kind: LoginFailed, Err: "incomplete session"})
		}
		mode := s.Mode
		s = Snapshot{
			Status:        Authenticated,
			Authenticated: true,
			Identity:      e.Identity,
			Token:         e.Token,
			Keys:          e.Keys,
			HasKeys:       e.HasKeys && !e.Keys.IsZero(),
			Degraded:      e.Degraded,
			Mode:          mode,
		}
		return s

	case LoginFailed:
		s.LastError = e.Err
		if s.Authenticated {
			// a failed re-login leaves the established session alone
			s.Status = Authenticated
			return s
		}
		s.Status = Error
		return s

	case ErrorRaised:
		s.LastError = e.Err
		return s

	case RestoreEmpty, LoggedOut:
		return Snapshot{
			Status:    Unauthenticated,
			LastError: e.Err,
			Mode:      s.Mode,
		}

	case ErrorCleared:
		s.LastError = ""
		return s

	case ModeChanged:
		s.Mode = e.Mode
		return s
	}
	return s
}
