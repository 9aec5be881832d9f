// Package authstate holds the session state machine as a pure transition
// function. The root client owns the only Snapshot and feeds it events.
package authstate
