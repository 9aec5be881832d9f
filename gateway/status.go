package gateway

import "strings"

// JobStatus is the lifecycle position of a transfer job. Values are ordered:
// a job never moves to a smaller value.
type JobStatus uint8

const (
	// JobPending means the job is accepted but not yet picked up.
	JobPending JobStatus = iota
	// JobProcessing means the job is in flight.
	JobProcessing
	// JobSucceeded is terminal.
	JobSucceeded
	// JobFailed is terminal.
	JobFailed
)

// Terminal reports whether s is Succeeded or Failed.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "PENDING"
	case JobProcessing:
		return "PROCESSING"
	case JobSucceeded:
		return "SUCCESS"
	case JobFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ParseJobStatus accepts the wire spellings used by the order status API.
func ParseJobStatus(raw string) (JobStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING":
		return JobPending, true
	case "PROCESSING", "IN_PROGRESS":
		return JobProcessing, true
	case "SUCCESS", "SUCCEEDED", "SUCCESSFUL":
		return JobSucceeded, true
	case "FAILED", "FAILURE":
		return JobFailed, true
	default:
		return 0, false
	}
}
