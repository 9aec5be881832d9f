package gateway

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goWallet/sessionkey"
)

// Unavailable is a Gateway whose every call fails with ErrTransportFailure.
// It stands in for a backend mode that has not been configured.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return ErrTransportFailure
	}
	return fmt.Errorf("%w: %s", ErrTransportFailure, u.Reason)
}

func (u Unavailable) ExchangeFederatedCredential(context.Context, string) (string, error) {
	return "", u.err()
}

func (u Unavailable) RequestEmailChallenge(context.Context, string) (string, error) {
	return "", u.err()
}

func (u Unavailable) VerifyEmailChallenge(context.Context, string, string, string) (string, error) {
	return "", u.err()
}

func (u Unavailable) VerifySession(context.Context, string) (Identity, error) {
	return Identity{}, u.err()
}

func (u Unavailable) InvalidateSession(context.Context, string) error {
	return u.err()
}

func (u Unavailable) ListNetworks(context.Context) ([]Network, error) {
	return nil, u.err()
}

func (u Unavailable) ListTokens(context.Context) ([]Token, error) {
	return nil, u.err()
}

func (u Unavailable) SubmitTransfer(context.Context, string, sessionkey.Material, TransferSpec) (string, error) {
	return "", u.err()
}

func (u Unavailable) CheckJobStatus(context.Context, string, string) (StatusReport, error) {
	return StatusReport{}, u.err()
}
