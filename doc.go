// Package goWallet is the client core of a wallet-as-a-service integration:
// a session state machine that authenticates a user through a federated
// credential or an email one-time code, persists and restores that session,
// and tracks submitted token transfers to a terminal outcome.
//
// Client methods are safe to call from multiple goroutines after
// [Builder.Build]. Call [Client.Restore] once before any login operation.
//
// # Architecture boundaries
//
// goWallet is the public surface. It exposes [Client], [Builder], [Config],
// and value types (Session, Challenge, JobSnapshot, MetricsSnapshot). The
// transition function lives in internal/authstate, flow orchestration in
// internal/flows, and polling in package tracker. The gateway contract is
// package gateway; the simulated and HTTP implementations sit beneath it.
//
// # What this package must NOT do
//
//   - Run two session installs concurrently.
//   - Retry a failed exchange or verification on its own.
//   - Log bearer tokens, private keys, or one-time codes.
package goWallet
