package goWallet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/internal"
	"github.com/MrEthical07/goWallet/internal/authstate"
	"github.com/MrEthical07/goWallet/internal/flows"
	"github.com/MrEthical07/goWallet/sessionkey"
)

const (
	methodFederated = "federated"
	methodEmail     = "email"
)

// Restore reads the Session Store and revalidates a stored token. It moves
// the client out of Initializing and must run before any login. A second
// call is a no-op.
//
// A Live token that fails revalidation is cleared. A Simulated token that
// fails revalidation is kept and bound to a placeholder identity. A Logout
// that lands while revalidation runs wins and the restored token is revoked.
func (c *Client) Restore(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if !c.installing.CompareAndSwap(false, true) {
		return ErrLoginInProgress
	}
	defer c.installing.Store(false)

	c.mu.Lock()
	done := c.restored
	epoch := c.epoch
	c.mu.Unlock()
	if done {
		return nil
	}

	res, err := flows.RunRestore(ctx, flows.RestoreDeps{
		Repository: c.repo,
		GatewayFor: func(simulated bool) gateway.Gateway {
			return c.gatewayFor(modeFor(simulated))
		},
		DefaultSimulated:      c.cfg.DefaultMode == ModeSimulated,
		DegradedVendorAddress: c.cfg.DegradedVendorAddress,
		Logger:                c.logger,
	})
	mode := modeFor(res.Simulated)

	installable := err == nil && (res.Outcome == flows.RestoreVerified || res.Outcome == flows.RestoreDegraded)

	c.mu.Lock()
	c.restored = true
	stale := c.epoch != epoch
	c.reduceLocked(authstate.Event{Kind: authstate.ModeChanged, Mode: mode})
	switch {
	case stale:
		c.reduceLocked(authstate.Event{Kind: authstate.RestoreEmpty})
	case err != nil:
		c.reduceLocked(authstate.Event{Kind: authstate.RestoreEmpty, Err: err.Error()})
	case installable:
		c.installLocked(res.Token, res.Identity, res.Keys, res.HasKeys, res.Outcome == flows.RestoreDegraded)
	default:
		c.reduceLocked(authstate.Event{Kind: authstate.RestoreEmpty})
	}
	c.mu.Unlock()

	if stale {
		// a logout ran while the stored session was being revalidated
		if installable {
			c.discard(ctx, mode, res.Token)
		}
		c.logger.Info("session restore superseded by logout")
		return nil
	}
	if err != nil {
		c.logger.Warn("session restore failed", slog.String("error", err.Error()))
		return err
	}

	switch res.Outcome {
	case flows.RestoreVerified:
		c.metricInc(MetricRestoreVerified)
		c.emitAudit(ctx, auditEventSessionRestored, true, res.Identity.UserID, "", nil, nil)
	case flows.RestoreDegraded:
		c.metricInc(MetricRestoreDegraded)
		c.logger.Warn("simulated session revalidation failed, using placeholder identity",
			slog.String("error", res.VerifyErr.Error()))
		c.emitAudit(ctx, auditEventSessionDegraded, true, res.Identity.UserID, "", res.VerifyErr, nil)
	case flows.RestoreRejected:
		c.metricInc(MetricRestoreRejected)
		c.logger.Info("stored session rejected", slog.String("error", res.VerifyErr.Error()))
		c.emitAudit(ctx, auditEventSessionRejected, false, "", "", res.VerifyErr, nil)
	}
	return nil
}

// Login exchanges a federated credential for a verified session.
func (c *Client) Login(ctx context.Context, credential string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := flows.ValidateCredential(credential); err != nil {
		return c.rejectInput(err)
	}
	return c.runLogin(ctx, methodFederated, func(deps flows.AuthDeps) (flows.Established, error) {
		return flows.RunFederatedLogin(ctx, credential, deps)
	})
}

// RequestEmailChallenge sends a one-time code to email and starts the resend
// countdown. Requesting again for the same email before the countdown ends
// fails with ErrResendTooSoon.
func (c *Client) RequestEmailChallenge(ctx context.Context, email string) (Challenge, error) {
	if err := c.ready(); err != nil {
		return Challenge{}, err
	}
	if err := flows.ValidateEmail(email); err != nil {
		return Challenge{}, c.rejectInput(err)
	}
	email = strings.TrimSpace(email)

	c.mu.Lock()
	if p := c.challenge; p != nil && strings.EqualFold(p.Email, email) && c.now().Before(p.ResendAt) {
		c.mu.Unlock()
		c.metricInc(MetricResendRejected)
		return Challenge{}, ErrResendTooSoon
	}
	mode := c.state.Mode
	c.mu.Unlock()

	return c.issueChallenge(ctx, email, mode)
}

// ResendEmailChallenge reissues the pending challenge once its countdown has
// reached zero. The gateway invalidates the previous challenge token.
func (c *Client) ResendEmailChallenge(ctx context.Context) (Challenge, error) {
	if err := c.ready(); err != nil {
		return Challenge{}, err
	}
	c.mu.Lock()
	p := c.challenge
	mode := c.state.Mode
	c.mu.Unlock()

	if p == nil {
		return Challenge{}, ErrNoPendingChallenge
	}
	if c.now().Before(p.ResendAt) {
		c.metricInc(MetricResendRejected)
		return Challenge{}, ErrResendTooSoon
	}
	return c.issueChallenge(ctx, p.Email, mode)
}

// ResendIn is the remaining countdown of the pending challenge.
func (c *Client) ResendIn() time.Duration {
	c.mu.Lock()
	p := c.challenge
	c.mu.Unlock()
	if p == nil {
		return 0
	}
	if d := p.ResendAt.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}

// PendingChallenge returns the challenge awaiting verification, if any.
func (c *Client) PendingChallenge() (Challenge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.challenge == nil {
		return Challenge{}, false
	}
	return *c.challenge, true
}

// CancelEmailChallenge forgets the pending challenge and its countdown.
func (c *Client) CancelEmailChallenge() {
	c.mu.Lock()
	c.challenge = nil
	c.mu.Unlock()
}

// VerifyEmailChallenge trades a code for a verified session. Malformed
// input is rejected without a gateway call.
func (c *Client) VerifyEmailChallenge(ctx context.Context, email, code, challengeToken string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := flows.ValidateEmail(email); err != nil {
		return c.rejectInput(err)
	}
	if err := flows.ValidateCode(code, c.cfg.OTP.CodeLength); err != nil {
		return c.rejectInput(err)
	}
	if err := flows.ValidateChallengeToken(challengeToken); err != nil {
		return c.rejectInput(err)
	}
	return c.runLogin(ctx, methodEmail, func(deps flows.AuthDeps) (flows.Established, error) {
		return flows.RunVerifyChallenge(ctx, email, code, challengeToken, deps)
	})
}

// Logout tears the session down. Remote invalidation is best effort; local
// state, job trackers and every persisted key are always cleared. Only a
// Session Store failure is returned.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	c.mu.Lock()
	token := c.state.Token
	mode := c.state.Mode
	userID := c.state.Identity.UserID
	c.epoch++
	cancelled := c.retireJobsLocked()
	c.challenge = nil
	c.reduceLocked(authstate.Event{Kind: authstate.LoggedOut})
	c.mu.Unlock()
	c.quiesceRetired()

	res := flows.RunLogout(ctx, token, flows.LogoutDeps{
		Gateway:    c.gatewayFor(mode),
		Repository: c.repo,
	})

	c.metricInc(MetricLogout)
	for i := 0; i < cancelled; i++ {
		c.metricInc(MetricJobsCancelled)
	}
	if res.RemoteErr != nil {
		c.metricInc(MetricLogoutRemoteFailure)
		c.logger.Warn("remote session invalidation failed", slog.String("error", res.RemoteErr.Error()))
	}
	c.emitAudit(ctx, auditEventLogout, res.RemoteErr == nil && res.StoreErr == nil, userID, "", errors.Join(res.RemoteErr, res.StoreErr), nil)

	return res.StoreErr
}

func (c *Client) issueChallenge(ctx context.Context, email string, mode Mode) (Challenge, error) {
	token, err := flows.RunRequestChallenge(ctx, email, c.gatewayFor(mode))
	if err != nil {
		c.raise(err)
		c.metricInc(MetricChallengeFailure)
		c.emitAudit(ctx, auditEventChallengeFailure, false, "", "", err, nil)
		return Challenge{}, err
	}

	now := c.now()
	ch := Challenge{
		Email:    email,
		Token:    token,
		IssuedAt: now,
		ResendAt: now.Add(c.cfg.OTP.ResendCountdown),
	}
	c.mu.Lock()
	c.challenge = &ch
	c.mu.Unlock()

	c.metricInc(MetricChallengeIssued)
	c.emitAudit(ctx, auditEventChallengeIssued, true, "", "", nil, map[string]string{
		"challenge": internal.TokenPrefix(token, 12),
	})
	return ch, nil
}

func (c *Client) rejectInput(err error) error {
	c.raise(err)
	c.metricInc(MetricInputRejected)
	return err
}

// runLogin holds the install flag for one login attempt and applies its
// result. A logout that lands while the attempt runs wins.
func (c *Client) runLogin(ctx context.Context, method string, run func(flows.AuthDeps) (flows.Established, error)) error {
	if !c.installing.CompareAndSwap(false, true) {
		c.metricInc(MetricLoginInProgressRejected)
		return ErrLoginInProgress
	}
	defer c.installing.Store(false)

	c.mu.Lock()
	mode := c.state.Mode
	epoch := c.epoch
	c.reduceLocked(authstate.Event{Kind: authstate.LoginStarted})
	c.mu.Unlock()

	start := c.now()
	est, err := run(flows.AuthDeps{
		Gateway:      c.gatewayFor(mode),
		GenerateKeys: c.keygen,
		Repository:   c.repo,
		Simulated:    mode == ModeSimulated,
		CodeLength:   c.cfg.OTP.CodeLength,
	})
	c.metrics.Observe(MetricLoginLatency, c.now().Sub(start))
	meta := map[string]string{"method": method}

	c.mu.Lock()
	stale := c.epoch != epoch
	switch {
	case stale:
	case err != nil:
		c.reduceLocked(authstate.Event{Kind: authstate.LoginFailed, Err: err.Error()})
	default:
		c.installLocked(est.Token, est.Identity, est.Keys, true, false)
	}
	c.mu.Unlock()
	c.quiesceRetired()

	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, meta)
		return err
	}
	if stale {
		c.discard(ctx, mode, est.Token)
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, est.Identity.UserID, "", ErrLoginSuperseded, meta)
		return ErrLoginSuperseded
	}

	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLoginSuccess, true, est.Identity.UserID, "", nil, meta)
	return nil
}

// installLocked replaces the session and detaches every job of the previous
// one. c.mu must be held.
func (c *Client) installLocked(token string, identity gateway.Identity, keys sessionkey.Material, hasKeys, degraded bool) {
	c.epoch++
	c.retireJobsLocked()
	c.challenge = nil
	c.reduceLocked(authstate.Event{
		Kind:     authstate.LoginSucceeded,
		Token:    token,
		Identity: identity,
		Keys:     keys,
		HasKeys:  hasKeys,
		Degraded: degraded,
	})
	if c.state.Authenticated {
		c.jobs = c.newSessionJobs(token)
	}
}

// discard undoes a login that completed after a logout.
func (c *Client) discard(ctx context.Context, mode Mode, token string) {
	if err := c.gatewayFor(mode).InvalidateSession(ctx, token); err != nil {
		c.logger.Warn("invalidate superseded session", slog.String("error", err.Error()))
	}
	if err := c.repo.Clear(ctx); err != nil {
		c.logger.Warn("clear superseded session", slog.String("error", err.Error()))
	}
}
