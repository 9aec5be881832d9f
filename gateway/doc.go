// Package gateway defines the Auth Gateway Client contract consumed by the
// wallet session state machine.
//
// # Contract
//
// A [Gateway] exchanges identity credentials for bearer tokens, issues and
// verifies email one-time-code challenges, revalidates and invalidates
// sessions, and accepts transfer jobs whose status is polled afterwards. The
// same success/failure contract holds whether the implementation talks to a
// live service (gateway/httpgateway) or to the deterministic-shape simulator
// (gateway/simulated).
//
// Failures are reported with the sentinel errors in this package and must be
// matched with [errors.Is]. Transport problems are always [ErrTransportFailure]
// (or an error wrapping it), never folded into a domain failure.
//
// # What this package must NOT do
//
//   - Hold session state. Bearer tokens and key material are passed per call.
//   - Import the root package or any implementation sub-package.
package gateway
