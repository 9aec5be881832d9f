package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashSecret returns the SHA-256 digest of v. Challenge codes are stored and
// compared only in this form.
func HashSecret(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}

// StableID derives a deterministic identifier from seed: prefix + "_" + the
// first 12 hex characters of its SHA-256 digest. Seeds are normalized to
// lower case.
func StableID(prefix, seed string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(seed))))
	return prefix + "_" + hex.EncodeToString(sum[:])[:12]
}
