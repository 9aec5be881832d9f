package gateway

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/MrEthical07/goWallet/sessionkey"
)

// MinRecipientLength is the shortest recipient address accepted for a transfer.
const MinRecipientLength = 10

// Gateway is the Auth Gateway Client contract.
//
// Every method may fail with [ErrTransportFailure]. Domain failures use the
// sentinels documented per method.
type Gateway interface {
	// ExchangeFederatedCredential trades an opaque identity credential for a
	// bearer token. Fails with ErrAuthFailure.
	ExchangeFederatedCredential(ctx context.Context, credential string) (string, error)

	// RequestEmailChallenge issues a one-time code to email and returns the
	// challenge token correlating it. Fails with ErrRateLimited or
	// ErrInvalidEmail. Issuing a new challenge invalidates the previous one.
	RequestEmailChallenge(ctx context.Context, email string) (string, error)

	// VerifyEmailChallenge trades a code plus challenge token for a bearer
	// token. Fails with ErrInvalidCode or ErrInvalidChallenge.
	VerifyEmailChallenge(ctx context.Context, email, code, challengeToken string) (string, error)

	// VerifySession resolves the identity bound to token. Fails with
	// ErrSessionInvalid.
	VerifySession(ctx context.Context, token string) (Identity, error)

	// InvalidateSession revokes token. Callers treat failure as non-fatal.
	InvalidateSession(ctx context.Context, token string) error

	// ListNetworks returns the networks transfers may target.
	ListNetworks(ctx context.Context) ([]Network, error)

	// ListTokens returns the token catalog. A TransferSpec.TokenAddress must
	// name a token listed for its network, or be empty for the native asset.
	ListTokens(ctx context.Context) ([]Token, error)

	// SubmitTransfer accepts a transfer job. Fails with ErrValidationFailure,
	// ErrSessionMissing, ErrSessionInvalid or ErrRateLimited.
	SubmitTransfer(ctx context.Context, token string, keys sessionkey.Material, spec TransferSpec) (string, error)

	// CheckJobStatus reports the current status of jobID. It fails only
	// with ErrUnknownJob or a transport failure; a failed job is a report,
	// not an error.
	CheckJobStatus(ctx context.Context, token, jobID string) (StatusReport, error)
}

// Identity is the snapshot returned by session verification.
type Identity struct {
	UserID         string `json:"user_id"`
	VendorID       string `json:"vendor_id"`
	UserAddress    string `json:"user_swa"`
	VendorAddress  string `json:"vendor_swa"`
	SessionAdded   bool   `json:"is_session_added"`
	RelayerOpsMode string `json:"sign_auth_relayer_user_ops"`
}

// Validate fails closed when required identity fields are missing.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return fmt.Errorf("%w: identity missing user id", ErrMalformedResponse)
	}
	return nil
}

// TransferSpec is the chain/recipient/amount triple of a token transfer.
// TokenAddress is empty for the network's native asset.
type TransferSpec struct {
	NetworkID    string
	TokenAddress string
	Recipient    string
	Amount       float64
}

// Validate applies the shape rules shared by every gateway implementation.
// Errors wrap ErrValidationFailure.
func (s TransferSpec) Validate() error {
	switch {
	case strings.TrimSpace(s.NetworkID) == "":
		return fmt.Errorf("%w: network is required", ErrValidationFailure)
	case strings.TrimSpace(s.Recipient) == "":
		return fmt.Errorf("%w: recipient address is required", ErrValidationFailure)
	case len(strings.TrimSpace(s.Recipient)) < MinRecipientLength:
		return fmt.Errorf("%w: invalid recipient address format", ErrValidationFailure)
	case math.IsNaN(s.Amount) || math.IsInf(s.Amount, 0) || s.Amount <= 0:
		return fmt.Errorf("%w: amount must be a positive number", ErrValidationFailure)
	}
	return nil
}

// Network describes a chain a transfer can be submitted to.
type Network struct {
	CAIPID             string `json:"caip_id"`
	Name               string `json:"network_name"`
	ChainID            string `json:"chain_id"`
	Type               string `json:"type"`
	SponsorshipEnabled bool   `json:"sponsorship_enabled"`
}

// Token is one entry of the token catalog. NetworkName matches
// Network.Name.
type Token struct {
	Name        string `json:"token_name"`
	Symbol      string `json:"token_symbol"`
	Address     string `json:"token_address"`
	NetworkName string `json:"network_name"`
	Decimals    int    `json:"decimals"`
}

// FindToken returns the token listed at address on network. Addresses
// compare case-insensitively.
func FindToken(tokens []Token, networkName, address string) (Token, bool) {
	address = strings.TrimSpace(address)
	for _, t := range tokens {
		if strings.EqualFold(t.NetworkName, networkName) && strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}

// StatusReport is one job status observation.
type StatusReport struct {
	JobID           string
	Status          JobStatus
	TransactionHash string
	FailureReason   string
}

// Validate enforces the per-status field rules of a report.
func (r StatusReport) Validate() error {
	switch r.Status {
	case JobPending, JobProcessing:
		return nil
	case JobSucceeded:
		if r.TransactionHash == "" {
			return fmt.Errorf("%w: succeeded job without transaction hash", ErrMalformedResponse)
		}
		return nil
	case JobFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown job status", ErrMalformedResponse)
	}
}
