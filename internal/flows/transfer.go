package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/sessionkey"
)

// TransferDeps captures transfer submission dependencies.
type TransferDeps struct {
	Gateway gateway.Gateway
	Token   string
	Keys    sessionkey.Material
	HasKeys bool
}

// RunSubmitTransfer validates spec locally, requires key material, and
// submits the job.
func RunSubmitTransfer(ctx context.Context, spec gateway.TransferSpec, deps TransferDeps) (string, error) {
	if err := ValidateTransfer(spec); err != nil {
		return "", err
	}
	if !deps.HasKeys || deps.Keys.IsZero() {
		return "", gateway.ErrSessionMissing
	}
	spec.Recipient = strings.TrimSpace(spec.Recipient)
	spec.NetworkID = strings.TrimSpace(spec.NetworkID)

	jobID, err := deps.Gateway.SubmitTransfer(ctx, deps.Token, deps.Keys, spec)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("%w: empty job id", gateway.ErrMalformedResponse)
	}
	return jobID, nil
}
