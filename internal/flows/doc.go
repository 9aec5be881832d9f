// Package flows contains the stateless orchestrators behind every Client
// operation.
//
// Each flow function (RunFederatedLogin, RunVerifyChallenge, RunRestore,
// RunLogout, RunSubmitTransfer) accepts a typed dependency struct and returns
// a result. All local input validation lives here, so malformed input is
// rejected before any gateway call.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goWallet (to avoid import cycles).
//   - Touch the session state machine; the Client applies results.
package flows
