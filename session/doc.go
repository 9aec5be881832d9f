// Package session provides the client's durable Session Store: a small
// string key-value contract with memory, JSON-file and Redis backends, and a
// typed [Repository] over the three persisted records.
//
// # Persisted keys
//
//   - auth_token: the bearer token, stored verbatim.
//   - session_config: JSON session key material.
//   - demo_mode: "true" for Simulated, "false" for Live.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT validate tokens or decide
// when a session is installed; the Client does.
package session
