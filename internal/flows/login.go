package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/session"
	"github.com/MrEthical07/goWallet/sessionkey"
)

// AuthDeps captures the dependencies shared by the login flows.
type AuthDeps struct {
	Gateway      gateway.Gateway
	GenerateKeys func() (sessionkey.Material, error)
	Repository   *session.Repository
	// Simulated is the mode written alongside the session.
	Simulated  bool
	CodeLength int
}

// Established is a verified, persisted session.
type Established struct {
	Token    string
	Identity gateway.Identity
	Keys     sessionkey.Material
}

// RunFederatedLogin exchanges credential for a bearer token and establishes
// the session.
func RunFederatedLogin(ctx context.Context, credential string, deps AuthDeps) (Established, error) {
	if err := ValidateCredential(credential); err != nil {
		return Established{}, err
	}
	token, err := deps.Gateway.ExchangeFederatedCredential(ctx, credential)
	if err != nil {
		return Established{}, err
	}
	return establish(ctx, token, deps)
}

// RunRequestChallenge validates email locally before asking gw for a code.
func RunRequestChallenge(ctx context.Context, email string, gw gateway.Gateway) (string, error) {
	if err := ValidateEmail(email); err != nil {
		return "", err
	}
	token, err := gw.RequestEmailChallenge(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: empty challenge token", gateway.ErrMalformedResponse)
	}
	return token, nil
}

// RunVerifyChallenge checks the code shape locally, verifies it with the
// gateway, and establishes the session.
func RunVerifyChallenge(ctx context.Context, email, code, challengeToken string, deps AuthDeps) (Established, error) {
	if err := ValidateEmail(email); err != nil {
		return Established{}, err
	}
	if err := ValidateCode(code, deps.CodeLength); err != nil {
		return Established{}, err
	}
	if err := ValidateChallengeToken(challengeToken); err != nil {
		return Established{}, err
	}
	token, err := deps.Gateway.VerifyEmailChallenge(ctx, strings.TrimSpace(email), code, challengeToken)
	if err != nil {
		return Established{}, err
	}
	return establish(ctx, token, deps)
}

// establish generates key material, verifies the session, and persists it.
// Nothing is written unless verification succeeds.
func establish(ctx context.Context, token string, deps AuthDeps) (Established, error) {
	if strings.TrimSpace(token) == "" {
		return Established{}, fmt.Errorf("%w: empty bearer token", gateway.ErrMalformedResponse)
	}

	keys, err := deps.GenerateKeys()
	if err != nil {
		return Established{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	identity, err := deps.Gateway.VerifySession(ctx, token)
	if err != nil {
		return Established{}, err
	}
	if err := identity.Validate(); err != nil {
		return Established{}, err
	}

	if err := deps.Repository.Save(ctx, token, keys, deps.Simulated); err != nil {
		return Established{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return Established{Token: token, Identity: identity, Keys: keys}, nil
}
