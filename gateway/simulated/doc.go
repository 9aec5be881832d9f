// Package simulated implements gateway.Gateway without a wallet backend.
//
// State lives in Redis (a miniredis instance is enough): email challenges,
// transfer jobs and revoked token ids. Bearer tokens are JWTs signed with a
// per-process key unless one is configured, so tokens minted before a
// restart fail verification afterwards.
//
// Job outcomes are stochastic. A status check whose index is at least
// SuccessFromAttempt resolves to Succeeded with probability
// SuccessProbability; every other check reports Processing. The simulator
// never reports Failed on its own; the client's attempt ceiling decides that.
package simulated
