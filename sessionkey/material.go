// Package sessionkey generates the ephemeral signing material bound to an
// authenticated wallet session.
//
// A session key pair is created at authentication time, persisted alongside
// the bearer token, and destroyed when the session is cleared. The owner
// address is derived from the public key the way EVM addresses are derived:
// the last 20 bytes of its Keccak-256 digest.
package sessionkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrInvalidMaterial is returned when persisted material fails shape checks.
var ErrInvalidMaterial = errors.New("invalid session key material")

const addressSize = 20

// Material is the session key triple. JSON field names match the persisted
// session_config record.
type Material struct {
	PrivateKey   string `json:"sessionPrivKey"`
	PublicKey    string `json:"sessionPubkey"`
	OwnerAddress string `json:"userSWA"`
}

// Generate creates fresh material from crypto/rand.
func Generate() (Material, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom creates material reading entropy from r.
func GenerateFrom(r io.Reader) (Material, error) {
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return Material{}, err
	}
	defer wipe(priv)

	return Material{
		PrivateKey:   "0x" + hex.EncodeToString(priv.Seed()),
		PublicKey:    "0x" + hex.EncodeToString(pub),
		OwnerAddress: OwnerAddress(pub),
	}, nil
}

// OwnerAddress derives the 0x-prefixed 20-byte address for pub.
func OwnerAddress(pub []byte) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(pub)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-addressSize:])
}

// IsZero reports whether m carries no material at all.
func (m Material) IsZero() bool {
	return m.PrivateKey == "" && m.PublicKey == "" && m.OwnerAddress == ""
}

// Validate checks that every field is present and 0x-prefixed hex. The
// private key is not re-derived; material produced elsewhere (for example by
// a live backend) only has to be well formed.
func (m Material) Validate() error {
	for _, field := range []string{m.PrivateKey, m.PublicKey, m.OwnerAddress} {
		if !isHex(field) {
			return ErrInvalidMaterial
		}
	}
	return nil
}

// Signer returns the ed25519 private key encoded in m.
func (m Material) Signer() (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(m.PrivateKey, "0x"))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidMaterial
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func isHex(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) < 4 {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
