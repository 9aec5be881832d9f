package flows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/session"
	"github.com/MrEthical07/goWallet/sessionkey"
)

// Identity fields of the placeholder session installed by a degraded
// simulated restore.
const (
	DegradedUserID        = "demo_user_123"
	DegradedVendorID      = "demo_vendor_456"
	DegradedUserAddress   = "0x742d35Cc6639C0532fEb2C6F29C55E3d8E2b9f2A"
	DegradedVendorAddress = "0xDemo1234567890"
	DegradedRelayerMode   = "enabled"
)

// RestoreOutcome classifies a restore attempt.
type RestoreOutcome uint8

const (
	// RestoreNone means no token was persisted.
	RestoreNone RestoreOutcome = iota
	// RestoreVerified means the persisted token passed revalidation.
	RestoreVerified
	// RestoreDegraded means revalidation failed in simulated mode and a
	// placeholder identity was bound to the stored token.
	RestoreDegraded
	// RestoreRejected means revalidation failed in live mode; the persisted
	// session was cleared.
	RestoreRejected
)

// RestoreDeps captures restore flow dependencies.
type RestoreDeps struct {
	Repository *session.Repository
	GatewayFor func(simulated bool) gateway.Gateway
	// DefaultSimulated applies when demo_mode was never written.
	DefaultSimulated bool
	// DegradedVendorAddress overrides the placeholder vendor address.
	DegradedVendorAddress string
	Logger                *slog.Logger
}

// RestoreResult is what RunRestore found.
type RestoreResult struct {
	Outcome   RestoreOutcome
	Simulated bool
	Token     string
	Identity  gateway.Identity
	Keys      sessionkey.Material
	HasKeys   bool
	// VerifyErr is the revalidation failure for Degraded and Rejected.
	VerifyErr error
}

// RunRestore reads the Session Store and revalidates any stored token with
// the gateway for the stored mode. Only a store backend failure is returned
// as an error.
func RunRestore(ctx context.Context, deps RestoreDeps) (RestoreResult, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	snap, err := deps.Repository.Load(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrCorruptConfig) {
			return RestoreResult{Simulated: deps.DefaultSimulated}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		logger.Warn("ignoring stored session config", slog.String("error", err.Error()))
	}

	res := RestoreResult{
		Simulated: deps.DefaultSimulated,
		Token:     snap.Token,
		Keys:      snap.Keys,
		HasKeys:   snap.HasKeys,
	}
	if snap.Simulated != nil {
		res.Simulated = *snap.Simulated
	}
	if snap.Token == "" {
		res.Outcome = RestoreNone
		res.Keys = sessionkey.Material{}
		res.HasKeys = false
		return res, nil
	}

	identity, err := deps.GatewayFor(res.Simulated).VerifySession(ctx, snap.Token)
	if err == nil {
		err = identity.Validate()
	}
	if err == nil {
		res.Outcome = RestoreVerified
		res.Identity = identity
		return res, nil
	}
	res.VerifyErr = err

	if res.Simulated {
		res.Outcome = RestoreDegraded
		res.Identity = degradedIdentity(snap, deps.DegradedVendorAddress)
		return res, nil
	}

	res.Outcome = RestoreRejected
	res.Token = ""
	res.Keys = sessionkey.Material{}
	res.HasKeys = false
	if err := deps.Repository.ClearSession(ctx); err != nil {
		logger.Warn("clear rejected session", slog.String("error", err.Error()))
	}
	return res, nil
}

func degradedIdentity(snap session.Snapshot, vendorAddress string) gateway.Identity {
	id := gateway.Identity{
		UserID:         DegradedUserID,
		VendorID:       DegradedVendorID,
		UserAddress:    DegradedUserAddress,
		VendorAddress:  DegradedVendorAddress,
		SessionAdded:   true,
		RelayerOpsMode: DegradedRelayerMode,
	}
	if snap.HasKeys && snap.Keys.OwnerAddress != "" {
		id.UserAddress = snap.Keys.OwnerAddress
	}
	if vendorAddress != "" {
		id.VendorAddress = vendorAddress
	}
	return id
}
