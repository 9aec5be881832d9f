// Package internal holds helpers private to goWallet: random identifiers,
// transaction-hash shaped values, verification codes and secret digests.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - authstate: pure Session State Machine reducer
//   - envconfig: WALLET_* settings for the binaries (viper, godotenv)
//   - flows: stateless orchestrators for every Client operation
//   - rate: Redis-backed fixed-window counters
//   - stores: Redis-backed simulator records
package internal
