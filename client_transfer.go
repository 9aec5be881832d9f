package goWallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/internal/flows"
	"github.com/MrEthical07/goWallet/tracker"
)

// sessionJobs is the tracker of one session. It is replaced, never reused,
// when the session changes.
type sessionJobs struct {
	tracker *tracker.Tracker
	token   string

	mu     sync.Mutex
	routes map[string]gateway.Gateway
}

func (c *Client) newSessionJobs(token string) *sessionJobs {
	s := &sessionJobs{
		token:  token,
		routes: make(map[string]gateway.Gateway),
	}
	s.tracker = tracker.New(tracker.Config{
		Interval:    c.cfg.Tracker.Interval,
		MaxAttempts: c.cfg.Tracker.MaxAttempts,
		Timer:       c.timer,
		Observer:    c.observeJob,
		Logger:      c.logger,
		Now:         c.now,
	}, s)
	return s
}

// CheckJobStatus routes a check to the gateway that accepted the job.
func (s *sessionJobs) CheckJobStatus(ctx context.Context, jobID string) (gateway.StatusReport, error) {
	s.mu.Lock()
	gw, ok := s.routes[jobID]
	s.mu.Unlock()
	if !ok {
		return gateway.StatusReport{}, gateway.ErrUnknownJob
	}
	return gw.CheckJobStatus(ctx, s.token, jobID)
}

func (s *sessionJobs) track(jobID string, gw gateway.Gateway) JobSnapshot {
	s.mu.Lock()
	s.routes[jobID] = gw
	s.mu.Unlock()
	return s.tracker.Track(jobID)
}

// retireJobsLocked cancels the current session's jobs and returns how many
// were still polling. c.mu must be held.
func (c *Client) retireJobsLocked() int {
	if c.jobs == nil {
		return 0
	}
	n := c.jobs.tracker.CancelAll()
	c.retired = append(c.retired, c.jobs.tracker)
	c.jobs = nil
	return n
}

// quiesceRetired waits for observer calls of detached sessions to return.
// c.mu must not be held.
func (c *Client) quiesceRetired() {
	c.mu.Lock()
	retired := append([]*tracker.Tracker(nil), c.retired...)
	c.mu.Unlock()
	for _, tr := range retired {
		tr.Quiesce()
	}
}

// Networks lists the networks the active gateway accepts transfers on.
func (c *Client) Networks(ctx context.Context) ([]Network, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.gatewayFor(c.Mode()).ListNetworks(ctx)
}

// Tokens lists the token catalog of the active gateway.
func (c *Client) Tokens(ctx context.Context) ([]Token, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.gatewayFor(c.Mode()).ListTokens(ctx)
}

// SubmitTransfer validates spec locally, submits it with the session's key
// material, and starts tracking the returned job. If the session ends while
// the submission is in flight it returns ErrJobCancelled and no job id.
func (c *Client) SubmitTransfer(ctx context.Context, spec TransferSpec) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	c.mu.Lock()
	st := c.state
	jobs := c.jobs
	epoch := c.epoch
	c.mu.Unlock()

	gw := c.gatewayFor(st.Mode)
	jobID, err := flows.RunSubmitTransfer(ctx, spec, flows.TransferDeps{
		Gateway: gw,
		Token:   st.Token,
		Keys:    st.Keys,
		HasKeys: st.Authenticated && st.HasKeys,
	})
	if err != nil {
		c.raise(err)
		if errors.Is(err, ErrInvalidInput) {
			c.metricInc(MetricInputRejected)
		}
		c.metricInc(MetricTransferRejected)
		c.emitAudit(ctx, auditEventTransferRejected, false, st.Identity.UserID, "", err, nil)
		return "", err
	}

	c.mu.Lock()
	if c.epoch != epoch || c.jobs != jobs || jobs == nil {
		c.mu.Unlock()
		c.logger.Warn("transfer accepted after its session ended", slog.String("job", jobID))
		return "", fmt.Errorf("%w: job %s was accepted but is not tracked", ErrJobCancelled, jobID)
	}
	jobs.track(jobID, gw)
	c.mu.Unlock()

	c.metricInc(MetricTransferSubmitted)
	c.emitAudit(ctx, auditEventTransferSubmitted, true, st.Identity.UserID, jobID, nil, map[string]string{
		"network": spec.NetworkID,
	})
	return jobID, nil
}

// Job returns the latest snapshot of a job tracked by the current session.
func (c *Client) Job(jobID string) (JobSnapshot, bool) {
	c.mu.Lock()
	jobs := c.jobs
	c.mu.Unlock()
	if jobs == nil {
		return JobSnapshot{}, false
	}
	return jobs.tracker.Get(jobID)
}

// WaitJob blocks until jobID is terminal, its session is cleared, or ctx is
// done.
func (c *Client) WaitJob(ctx context.Context, jobID string) (JobSnapshot, error) {
	c.mu.Lock()
	jobs := c.jobs
	c.mu.Unlock()
	if jobs == nil {
		return JobSnapshot{}, ErrJobNotTracked
	}
	return jobs.tracker.Wait(ctx, jobID)
}

func (c *Client) observeJob(snap JobSnapshot) {
	c.metricInc(MetricJobStatusCheck)
	if snap.Terminal() {
		ctx := context.Background()
		switch {
		case snap.Status == JobSucceeded:
			c.metricInc(MetricJobSucceeded)
			c.emitAudit(ctx, auditEventJobSucceeded, true, "", snap.JobID, nil, map[string]string{
				"transaction_hash": snap.TransactionHash,
				"attempts":         snap.Progress(),
			})
		case errors.Is(snap.Err, ErrPolicyFailure):
			c.metricInc(MetricJobPolicyFailure)
			c.emitAudit(ctx, auditEventJobFailed, false, "", snap.JobID, snap.Err, map[string]string{"reason": snap.FailureReason})
		case errors.Is(snap.Err, ErrUnknownJob):
			c.metricInc(MetricJobUnknown)
			c.emitAudit(ctx, auditEventJobFailed, false, "", snap.JobID, snap.Err, nil)
		default:
			c.metricInc(MetricJobFailed)
			c.emitAudit(ctx, auditEventJobFailed, false, "", snap.JobID, nil, map[string]string{"reason": snap.FailureReason})
		}
	}
	if c.observer != nil {
		c.observer(snap)
	}
}
