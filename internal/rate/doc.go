// Package rate provides the Redis-backed fixed-window counters the simulated
// gateway uses to throttle verification code issuance.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rc: code requests per email
//   - rs: transfer submissions per user
package rate
