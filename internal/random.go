package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const transactionHashSize = 32

// NewPrefixedID returns prefix + "_" + a random UUID. An empty prefix yields
// the bare UUID.
func NewPrefixedID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// NewHex returns "0x" followed by n random bytes in lowercase hex.
func NewHex(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid hex length")
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}

// NewTransactionHash returns a 32-byte 0x-prefixed hash shaped like an EVM
// transaction hash.
func NewTransactionHash() (string, error) {
	return NewHex(transactionHashSize)
}

func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// TokenPrefix returns at most n leading characters of token, for log fields.
func TokenPrefix(token string, n int) string {
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
