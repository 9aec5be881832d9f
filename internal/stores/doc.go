// Package stores provides the Redis-backed records behind the simulated
// wallet gateway: email verification challenges, transfer jobs, and revoked
// bearer token ids.
//
// # Design
//
// Each store persists a versioned, binary-encoded record in Redis with a TTL.
// Challenge consumption runs as a single Lua script so the supersession check,
// the code comparison and the delete happen atomically. Job advancement uses
// WATCH/MULTI optimistic transactions with retry on contention. Code hashes
// are compared in constant time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control. It does NOT
// generate codes or ids, enforce rate limits, or decide job outcomes; callers
// supply those.
package stores

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
