package sessionkey

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateProducesDistinctWellFormedMaterial(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if err := a.Validate(); err != nil {
		t.Fatalf("expected valid material, got %v", err)
	}
	if a.PrivateKey == b.PrivateKey || a.OwnerAddress == b.OwnerAddress {
		t.Fatal("expected independent key material per call")
	}
	if len(a.OwnerAddress) != 2+2*addressSize {
		t.Fatalf("unexpected owner address length %d", len(a.OwnerAddress))
	}
}

func TestOwnerAddressMatchesPublicKey(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	m, err := GenerateFrom(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("GenerateFrom failed: %v", err)
	}

	pub, err := hex.DecodeString(strings.TrimPrefix(m.PublicKey, "0x"))
	if err != nil {
		t.Fatalf("public key not hex: %v", err)
	}
	if got := OwnerAddress(pub); got != m.OwnerAddress {
		t.Fatalf("owner address mismatch: %s != %s", got, m.OwnerAddress)
	}

	signer, err := m.Signer()
	if err != nil {
		t.Fatalf("Signer failed: %v", err)
	}
	if !bytes.Equal(signer.Public().(ed25519.PublicKey), pub) {
		t.Fatal("signer does not match stored public key")
	}
}

func TestValidateRejectsMalformedMaterial(t *testing.T) {
	cases := []Material{
		{},
		{PrivateKey: "0xab", PublicKey: "0xcd"},
		{PrivateKey: "ab", PublicKey: "0xcd", OwnerAddress: "0xef"},
		{PrivateKey: "0xzz", PublicKey: "0xcd", OwnerAddress: "0xef"},
	}
	for i, m := range cases {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if !(Material{}).IsZero() {
		t.Fatal("expected empty material to be zero")
	}
}
