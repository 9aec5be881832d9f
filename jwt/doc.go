// Package jwt issues and verifies the bearer tokens handed out by the
// simulated wallet gateway.
package jwt
