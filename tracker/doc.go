// Package tracker polls transfer jobs to a terminal status.
//
// Each tracked job gets its own goroutine that waits one interval, checks the
// job, and applies the report under the tracker lock. The attempt counter
// grows by one per completed check; a wait interrupted by cancellation does
// not count. When the ceiling is reached without success the job is forced
// to Failed with reason "network congestion". A job whose id the gateway
// does not recognize fails with [gateway.ErrUnknownJob] instead of polling
// forever.
//
// CancelAll detaches every job from the tracker. A detached goroutine checks
// its relevance flag before each mutation and exits without reporting.
package tracker
