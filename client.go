package goWallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/internal/audit"
	"github.com/MrEthical07/goWallet/internal/authstate"
	"github.com/MrEthical07/goWallet/session"
	"github.com/MrEthical07/goWallet/sessionkey"
	"github.com/MrEthical07/goWallet/tracker"
)

// Client is the session state machine dispatcher. It owns the only session
// snapshot and applies every flow result to it through authstate.Reduce.
type Client struct {
	cfg      Config
	repo     *session.Repository
	gateways map[Mode]gateway.Gateway
	logger   *slog.Logger
	audit    *audit.Dispatcher
	metrics  *Metrics
	now      func() time.Time
	keygen   func() (sessionkey.Material, error)
	timer    func(time.Duration) <-chan time.Time
	observer func(JobSnapshot)

	// installing is held by Restore and by each login while it runs.
	installing atomic.Bool
	closed     atomic.Bool

	mu        sync.Mutex
	state     authstate.Snapshot
	restored  bool
	epoch     uint64
	challenge *Challenge
	jobs      *sessionJobs
	retired   []*tracker.Tracker
}

// Close stops every job tracker and flushes the audit dispatcher.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	c.retireJobsLocked()
	retired := c.retired
	c.retired = nil
	c.mu.Unlock()

	for _, t := range retired {
		t.Close()
	}
	c.audit.Close()
}

func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return c.metrics.Snapshot()
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sessionFrom(c.state)
}

// Mode returns the active gateway flavor.
func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode
}

// SetMode switches the gateway flavor and persists it. The session is not
// touched.
func (c *Client) SetMode(ctx context.Context, mode Mode) error {
	if mode != ModeSimulated && mode != ModeLive {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidInput, mode)
	}
	if c.closed.Load() {
		return ErrClientClosed
	}

	c.mu.Lock()
	c.reduceLocked(authstate.Event{Kind: authstate.ModeChanged, Mode: mode})
	c.mu.Unlock()

	c.metricInc(MetricModeChanged)
	c.emitAudit(ctx, auditEventModeChanged, true, "", "", nil, nil)

	if err := c.repo.SaveMode(ctx, mode == ModeSimulated); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ClearError drops the displayed error without changing state.
func (c *Client) ClearError() {
	c.mu.Lock()
	c.reduceLocked(authstate.Event{Kind: authstate.ErrorCleared})
	c.mu.Unlock()
}

func (c *Client) reduceLocked(e authstate.Event) {
	c.state = authstate.Reduce(c.state, e)
}

func (c *Client) raise(err error) {
	c.mu.Lock()
	c.reduceLocked(authstate.Event{Kind: authstate.ErrorRaised, Err: err.Error()})
	c.mu.Unlock()
}

func (c *Client) ready() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.restored {
		return ErrClientNotReady
	}
	return nil
}

func (c *Client) gatewayFor(mode Mode) gateway.Gateway {
	return c.gateways[mode]
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func modeFor(simulated bool) Mode {
	if simulated {
		return ModeSimulated
	}
	return ModeLive
}
