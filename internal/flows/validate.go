package flows

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/goWallet/gateway"
)

// ValidateCredential rejects an empty federated credential.
func ValidateCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, gateway.ErrAuthFailure)
	}
	return nil
}

// ValidateEmail applies the local@domain.tld shape rule.
func ValidateEmail(email string) error {
	if !gateway.ValidEmail(email) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, gateway.ErrInvalidEmail)
	}
	return nil
}

// ValidateCode requires exactly length ASCII digits.
func ValidateCode(code string, length int) error {
	if !gateway.ValidCode(code, length) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, gateway.ErrInvalidCode)
	}
	return nil
}

// ValidateChallengeToken rejects an empty challenge token.
func ValidateChallengeToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, gateway.ErrInvalidChallenge)
	}
	return nil
}

// ValidateTransfer applies the transfer form rules. Failures match both
// ErrInvalidInput and gateway.ErrValidationFailure.
func ValidateTransfer(spec gateway.TransferSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
