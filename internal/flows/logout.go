package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/session"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Gateway    gateway.Gateway
	Repository *session.Repository
}

// LogoutResult reports the two halves of a logout. Local teardown is
// attempted even when RemoteErr is set.
type LogoutResult struct {
	RemoteErr error
	StoreErr  error
}

// RunLogout invalidates token remotely (best effort) and clears every
// persisted key.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	if token != "" && deps.Gateway != nil {
		res.RemoteErr = deps.Gateway.InvalidateSession(ctx, token)
	}
	if err := deps.Repository.Clear(ctx); err != nil {
		res.StoreErr = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return res
}
