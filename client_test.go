package goWallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/internal"
	"github.com/MrEthical07/goWallet/internal/flows"
	"github.com/MrEthical07/goWallet/session"
	"github.com/MrEthical07/goWallet/sessionkey"
	"github.com/MrEthical07/goWallet/tracker"
)

func TestOperationsBeforeRestoreAreRejected(t *testing.T) {
	h := newHarness(t)
	c, err := New().WithConfig(h.config()).WithRedis(h.rdb).WithStore(h.kv).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if got := c.Session().Status; got != StatusInitializing {
		t.Fatalf("expected Initializing, got %s", got)
	}
	if err := c.Login(context.Background(), "cred"); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady, got %v", err)
	}
	if _, err := c.RequestEmailChallenge(context.Background(), "a@b.co"); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady, got %v", err)
	}

	if err := c.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := c.Session().Status; got != StatusUnauthenticated {
		t.Fatalf("expected Unauthenticated on empty store, got %s", got)
	}
	if err := c.Restore(context.Background()); err != nil {
		t.Fatalf("second restore should be a no-op, got %v", err)
	}
}

func TestFederatedLoginPersistsSession(t *testing.T) {
	h := newHarness(t)
	c := h.build()

	if err := c.Login(context.Background(), "google-id-token"); err != nil {
		t.Fatalf("login: %v", err)
	}

	s := c.Session()
	if s.Status != StatusAuthenticated || !s.Authenticated {
		t.Fatalf("expected Authenticated, got %s", s.Status)
	}
	if s.User == nil || s.User.UserID != internal.StableID("user", "federated:google-id-token") {
		t.Fatalf("unexpected identity %+v", s.User)
	}
	if s.BearerToken == "" || s.Keys == nil || s.LastError != "" {
		t.Fatalf("incomplete session %+v", s)
	}

	token, ok := h.stored(session.KeyAuthToken)
	if !ok || token != s.BearerToken {
		t.Fatalf("stored token mismatch: %q", token)
	}
	if cfg, ok := h.stored(session.KeySessionConfig); !ok || cfg == "" {
		t.Fatal("expected stored key material")
	}
	if mode, _ := h.stored(session.KeyDemoMode); mode != "true" {
		t.Fatalf("expected demo_mode true, got %q", mode)
	}

	snap := c.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected one login success, got %d", snap.Counters[MetricLoginSuccess])
	}
}

func TestInvalidEmailNeverReachesGateway(t *testing.T) {
	h := newHarness(t)
	gw := &countingGateway{Gateway: h.simulator(nil)}
	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, gw) })

	for _, email := range []string{"", "plain", "a@b", "a b@c.co"} {
		_, err := c.RequestEmailChallenge(context.Background(), email)
		if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("email %q: expected local invalid email, got %v", email, err)
		}
	}
	if gw.requests.Load() != 0 {
		t.Fatalf("expected no gateway requests, got %d", gw.requests.Load())
	}
	s := c.Session()
	if s.Status != StatusUnauthenticated || s.LastError == "" {
		t.Fatalf("expected Unauthenticated with an error, got %s %q", s.Status, s.LastError)
	}

	c.ClearError()
	if got := c.Session(); got.LastError != "" || got.Status != StatusUnauthenticated {
		t.Fatalf("ClearError should only drop the error, got %+v", got)
	}
}

func TestMalformedCodeNeverReachesGateway(t *testing.T) {
	h := newHarness(t)
	gw := &countingGateway{Gateway: h.simulator(nil)}
	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, gw) })

	ch, err := c.RequestEmailChallenge(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		err := c.VerifyEmailChallenge(context.Background(), ch.Email, code, ch.Token)
		if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("code %q: expected local invalid code, got %v", code, err)
		}
	}
	if err := c.VerifyEmailChallenge(context.Background(), ch.Email, "123456", " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected blank challenge token to be rejected locally, got %v", err)
	}
	if gw.verifies.Load() != 0 {
		t.Fatalf("expected no verify calls, got %d", gw.verifies.Load())
	}
	if c.Session().Authenticated {
		t.Fatal("expected no session")
	}
}

func TestEmailChallengeResendFlow(t *testing.T) {
	h := newHarness(t)
	var mu sync.Mutex
	delivered := map[string]int{}
	c := h.build(func(b *Builder) {
		b.WithCodeDelivery(func(email, _ string) {
			mu.Lock()
			delivered[email]++
			mu.Unlock()
		})
	})
	ctx := context.Background()

	first, err := c.RequestEmailChallenge(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := c.ResendIn(); got != 300*time.Second {
		t.Fatalf("expected 300s countdown, got %s", got)
	}

	if _, err := c.ResendEmailChallenge(ctx); !errors.Is(err, ErrResendTooSoon) {
		t.Fatalf("expected ErrResendTooSoon, got %v", err)
	}
	if _, err := c.RequestEmailChallenge(ctx, "USER@example.com"); !errors.Is(err, ErrResendTooSoon) {
		t.Fatalf("expected repeated request to be gated, got %v", err)
	}

	h.clock.Add(300 * time.Second)
	if got := c.ResendIn(); got != 0 {
		t.Fatalf("expected countdown at zero, got %s", got)
	}
	second, err := c.ResendEmailChallenge(ctx)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if second.Token == first.Token {
		t.Fatal("expected a fresh challenge token")
	}
	if p, ok := c.PendingChallenge(); !ok || p.Token != second.Token {
		t.Fatalf("pending challenge not replaced: %+v", p)
	}

	if err := c.VerifyEmailChallenge(ctx, "user@example.com", "123456", first.Token); !errors.Is(err, ErrInvalidChallenge) {
		t.Fatalf("expected superseded token to be rejected, got %v", err)
	}
	if s := c.Session(); s.Status != StatusError || s.LastError != ErrInvalidChallenge.Error() {
		t.Fatalf("expected Error with the gateway message, got %s %q", s.Status, s.LastError)
	}

	if err := c.VerifyEmailChallenge(ctx, "user@example.com", "123456", second.Token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	s := c.Session()
	if !s.Authenticated || s.User.UserID != internal.StableID("user", "email:user@example.com") {
		t.Fatalf("unexpected session %+v", s)
	}
	if _, ok := c.PendingChallenge(); ok {
		t.Fatal("expected challenge to be cleared by login")
	}

	mu.Lock()
	defer mu.Unlock()
	if delivered["user@example.com"] != 2 {
		t.Fatalf("expected two deliveries, got %d", delivered["user@example.com"])
	}
}

func TestCancelEmailChallenge(t *testing.T) {
	h := newHarness(t)
	c := h.build()

	if _, err := c.ResendEmailChallenge(context.Background()); !errors.Is(err, ErrNoPendingChallenge) {
		t.Fatalf("expected ErrNoPendingChallenge, got %v", err)
	}
	if _, err := c.RequestEmailChallenge(context.Background(), "a@b.co"); err != nil {
		t.Fatalf("request: %v", err)
	}
	c.CancelEmailChallenge()
	if c.ResendIn() != 0 {
		t.Fatal("expected no countdown after cancel")
	}
	if _, err := c.RequestEmailChallenge(context.Background(), "a@b.co"); err != nil {
		t.Fatalf("request after cancel: %v", err)
	}
}

func TestLoginFailureKeepsPriorSession(t *testing.T) {
	h := newHarness(t)
	c := h.build()
	ctx := context.Background()

	if err := c.Login(ctx, "first"); err != nil {
		t.Fatalf("login: %v", err)
	}
	before := c.Session()

	ch, err := c.RequestEmailChallenge(ctx, "a@b.co")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	c.CancelEmailChallenge()
	if err := c.VerifyEmailChallenge(ctx, "a@b.co", "123456", ch.Token+"x"); !errors.Is(err, ErrInvalidChallenge) {
		t.Fatalf("expected ErrInvalidChallenge, got %v", err)
	}

	after := c.Session()
	if !after.Authenticated || after.Status != StatusAuthenticated {
		t.Fatalf("expected prior session kept, got %s", after.Status)
	}
	if after.BearerToken != before.BearerToken || after.LastError == "" {
		t.Fatalf("unexpected session after failed re-login: %+v", after)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t)
	gw := &countingGateway{Gateway: h.simulator(nil)}
	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, gw) })
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	token := c.Session().BearerToken

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	s := c.Session()
	if s.Authenticated || s.Status != StatusUnauthenticated || s.Keys != nil || s.User != nil || s.BearerToken != "" {
		t.Fatalf("expected cleared session, got %+v", s)
	}
	for _, key := range []string{session.KeyAuthToken, session.KeySessionConfig, session.KeyDemoMode} {
		if _, ok := h.stored(key); ok {
			t.Fatalf("expected %s to be removed", key)
		}
	}
	if gw.logouts.Load() != 1 {
		t.Fatalf("expected one remote invalidation, got %d", gw.logouts.Load())
	}
	if _, err := gw.VerifySession(ctx, token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected revoked token, got %v", err)
	}
}

func TestLogoutSucceedsWhenRemoteFails(t *testing.T) {
	h := newHarness(t)
	c := h.build(func(b *Builder) { b.WithAuditSink(NoOpSink{}) })
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	c.gateways[ModeSimulated] = offlineLogout{Gateway: c.gateways[ModeSimulated]}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("expected logout to succeed locally, got %v", err)
	}
	if c.Session().Authenticated {
		t.Fatal("expected cleared session")
	}
	if _, ok := h.stored(session.KeyAuthToken); ok {
		t.Fatal("expected token removed")
	}
	if c.MetricsSnapshot().Counters[MetricLogoutRemoteFailure] != 1 {
		t.Fatal("expected remote failure to be counted")
	}
}

type offlineLogout struct{ gateway.Gateway }

func (offlineLogout) InvalidateSession(context.Context, string) error {
	return gateway.ErrTransportFailure
}

func TestRestoreVerifiesStoredSession(t *testing.T) {
	h := newHarness(t)
	first := h.build()
	if err := first.Login(context.Background(), "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	want := first.Session()
	first.Close()

	second := h.build()
	got := second.Session()
	if !got.Authenticated || got.Degraded {
		t.Fatalf("expected verified session, got %+v", got)
	}
	if got.BearerToken != want.BearerToken || got.User.UserID != want.User.UserID || *got.Keys != *want.Keys {
		t.Fatalf("restored session differs: %+v vs %+v", got, want)
	}
	if second.MetricsSnapshot().Counters[MetricRestoreVerified] != 1 {
		t.Fatal("expected verified restore to be counted")
	}
}

func TestRestoreLiveFailureClearsSession(t *testing.T) {
	h := newHarness(t)
	keys, err := sessionkey.Generate()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if err := session.NewRepository(h.kv).Save(context.Background(), "stale-token", keys, false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := h.build(func(b *Builder) { b.WithGateway(ModeLive, h.simulator(nil)) })
	s := c.Session()
	if s.Authenticated || s.Status != StatusUnauthenticated || s.Mode != ModeLive {
		t.Fatalf("expected Unauthenticated in live mode, got %+v", s)
	}
	if _, ok := h.stored(session.KeyAuthToken); ok {
		t.Fatal("expected rejected token to be cleared")
	}
	if _, ok := h.stored(session.KeySessionConfig); ok {
		t.Fatal("expected rejected keys to be cleared")
	}
	if mode, _ := h.stored(session.KeyDemoMode); mode != "false" {
		t.Fatalf("expected demo_mode preserved, got %q", mode)
	}
}

func TestRestoreSimulatedFailureDegrades(t *testing.T) {
	h := newHarness(t)
	keys, err := sessionkey.Generate()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if err := session.NewRepository(h.kv).Save(context.Background(), "stale-token", keys, true); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, gateway.Unavailable{}) })
	s := c.Session()
	if !s.Authenticated || !s.Degraded || s.Mode != ModeSimulated {
		t.Fatalf("expected degraded simulated session, got %+v", s)
	}
	if s.User.UserID != flows.DegradedUserID || s.User.UserAddress != keys.OwnerAddress {
		t.Fatalf("unexpected placeholder identity %+v", s.User)
	}
	if s.BearerToken != "stale-token" || s.Keys == nil || *s.Keys != keys {
		t.Fatalf("expected stored credentials kept, got %+v", s)
	}
}

func TestRestoreCorruptKeysLeavesTokenOnlySession(t *testing.T) {
	h := newHarness(t)
	sim := h.simulator(nil)
	token, err := sim.ExchangeFederatedCredential(context.Background(), "cred")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	_ = h.kv.Set(context.Background(), session.KeyAuthToken, token)
	_ = h.kv.Set(context.Background(), session.KeySessionConfig, "{not json")

	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, sim) })
	s := c.Session()
	if !s.Authenticated || s.Keys != nil {
		t.Fatalf("expected authenticated session without keys, got %+v", s)
	}
	if _, err := c.SubmitTransfer(context.Background(), validTransfer()); !errors.Is(err, ErrSessionMissing) {
		t.Fatalf("expected ErrSessionMissing without keys, got %v", err)
	}
}

func TestSetModePersists(t *testing.T) {
	h := newHarness(t)
	c := h.build()
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.SetMode(ctx, ModeLive); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if c.Mode() != ModeLive || !c.Session().Authenticated {
		t.Fatal("expected live mode with the session untouched")
	}
	if mode, _ := h.stored(session.KeyDemoMode); mode != "false" {
		t.Fatalf("expected demo_mode false, got %q", mode)
	}
	if err := c.SetMode(ctx, Mode(9)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	// Live has no base URL configured.
	if _, err := c.Networks(ctx); !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("expected transport failure from unconfigured live gateway, got %v", err)
	}
}

func TestConcurrentLoginIsRejected(t *testing.T) {
	h := newHarness(t)
	sim := h.simulator(nil)
	slow := &slowGateway{Gateway: sim, entered: make(chan struct{}), release: make(chan struct{})}
	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, slow) })
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Login(ctx, "slow") }()
	<-slow.entered

	if s := c.Session(); s.Status != StatusAuthenticating {
		t.Fatalf("expected Authenticating, got %s", s.Status)
	}
	if err := c.Login(ctx, "fast"); !errors.Is(err, ErrLoginInProgress) {
		t.Fatalf("expected ErrLoginInProgress, got %v", err)
	}
	if _, err := c.RequestEmailChallenge(ctx, "a@b.co"); err != nil {
		t.Fatalf("challenge request should not be blocked by a login, got %v", err)
	}
	if err := c.VerifyEmailChallenge(ctx, "a@b.co", "123456", "email_session_x"); !errors.Is(err, ErrLoginInProgress) {
		t.Fatalf("expected ErrLoginInProgress for verify, got %v", err)
	}

	close(slow.release)
	if err := <-done; err != nil {
		t.Fatalf("slow login: %v", err)
	}
	s := c.Session()
	if !s.Authenticated || s.User.UserID != internal.StableID("user", "federated:slow") {
		t.Fatalf("expected the first login to win, got %+v", s.User)
	}
	if c.MetricsSnapshot().Counters[MetricLoginInProgressRejected] != 2 {
		t.Fatal("expected two rejected logins")
	}
}

func TestLogoutDuringLoginDiscardsResult(t *testing.T) {
	h := newHarness(t)
	sim := h.simulator(nil)
	slow := &slowGateway{Gateway: sim, entered: make(chan struct{}), release: make(chan struct{})}
	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, slow) })
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Login(ctx, "slow") }()
	<-slow.entered

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	close(slow.release)

	if err := <-done; !errors.Is(err, ErrLoginSuperseded) {
		t.Fatalf("expected ErrLoginSuperseded, got %v", err)
	}
	if c.Session().Authenticated {
		t.Fatal("expected logout to win")
	}
	if _, ok := h.stored(session.KeyAuthToken); ok {
		t.Fatal("expected discarded login to leave nothing stored")
	}
}

func TestLogoutDuringRestoreWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.build()
	if err := first.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	token := first.Session().BearerToken
	first.Close()

	sim := h.simulator(nil)
	parked := &parkedVerifyGateway{Gateway: sim, entered: make(chan struct{}), release: make(chan struct{})}
	c, err := New().
		WithConfig(h.config()).
		WithRedis(h.rdb).
		WithStore(h.kv).
		WithClock(h.clock.Now).
		WithTrackerTimer(immediateTimer).
		WithGateway(ModeSimulated, parked).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Restore(ctx) }()
	<-parked.entered

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	close(parked.release)
	if err := <-done; err != nil {
		t.Fatalf("restore: %v", err)
	}

	s := c.Session()
	if s.Authenticated || s.Status != StatusUnauthenticated || s.BearerToken != "" {
		t.Fatalf("expected logout to win over restore, got %+v", s)
	}
	for _, key := range []string{session.KeyAuthToken, session.KeySessionConfig} {
		if _, ok := h.stored(key); ok {
			t.Fatalf("expected %s to stay cleared", key)
		}
	}
	if _, err := sim.VerifySession(ctx, token); !errors.Is(err, gateway.ErrSessionInvalid) {
		t.Fatalf("expected restored token to be revoked, got %v", err)
	}
	if _, err := c.WaitJob(ctx, "job_missing"); !errors.Is(err, ErrJobNotTracked) {
		t.Fatalf("expected no job tracker after logout, got %v", err)
	}
}

func TestSubmitDuringLogoutReturnsNoJob(t *testing.T) {
	h := newHarness(t)
	parked := &parkedSubmitGateway{Gateway: h.simulator(nil), entered: make(chan struct{}), release: make(chan struct{})}
	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, parked) })
	ctx := context.Background()
	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}

	type result struct {
		jobID string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		id, err := c.SubmitTransfer(ctx, validTransfer())
		done <- result{id, err}
	}()
	<-parked.entered
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	close(parked.release)

	res := <-done
	if !errors.Is(res.err, ErrJobCancelled) || res.jobID != "" {
		t.Fatalf("expected ErrJobCancelled with no job id, got %q %v", res.jobID, res.err)
	}
}

func TestTransferValidationFailsBeforeSubmit(t *testing.T) {
	h := newHarness(t)
	gw := &countingGateway{Gateway: h.simulator(nil)}
	c := h.build(func(b *Builder) { b.WithGateway(ModeSimulated, gw) })
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}

	spec := validTransfer()
	spec.Amount = 0
	jobID, err := c.SubmitTransfer(ctx, spec)
	if !errors.Is(err, ErrValidationFailure) || jobID != "" {
		t.Fatalf("expected validation failure with no job, got %q %v", jobID, err)
	}
	spec = validTransfer()
	spec.Recipient = "0x123"
	if _, err := c.SubmitTransfer(ctx, spec); !errors.Is(err, ErrValidationFailure) {
		t.Fatalf("expected short recipient to fail, got %v", err)
	}
	if gw.submits.Load() != 0 {
		t.Fatalf("expected no gateway submits, got %d", gw.submits.Load())
	}
	if c.Session().LastError == "" {
		t.Fatal("expected validation error surfaced")
	}
}

func TestTransferWithoutSessionIsMissing(t *testing.T) {
	h := newHarness(t)
	c := h.build()
	if _, err := c.SubmitTransfer(context.Background(), validTransfer()); !errors.Is(err, ErrSessionMissing) {
		t.Fatalf("expected ErrSessionMissing, got %v", err)
	}
}

func TestTransferSucceeds(t *testing.T) {
	h := newHarness(t)
	var mu sync.Mutex
	var seen []JobSnapshot
	c := h.build(func(b *Builder) {
		b.WithSimulatorRand(func() float64 { return 0 })
		b.WithJobObserver(func(s JobSnapshot) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		})
	})
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	networks, err := c.Networks(ctx)
	if err != nil || len(networks) != 3 {
		t.Fatalf("expected three networks, got %d %v", len(networks), err)
	}

	jobID, err := c.SubmitTransfer(ctx, validTransfer())
	if err != nil || jobID == "" {
		t.Fatalf("submit: %q %v", jobID, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, err := c.WaitJob(waitCtx, jobID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if snap.Status != JobSucceeded || snap.TransactionHash == "" {
		t.Fatalf("expected success with hash, got %+v", snap)
	}
	if snap.Attempts != 3 {
		t.Fatalf("expected success on the third check, got %d", snap.Attempts)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		if seen[i].Status < seen[i-1].Status {
			t.Fatalf("status regressed: %s after %s", seen[i].Status, seen[i-1].Status)
		}
	}
	if got := c.MetricsSnapshot().Counters[MetricJobSucceeded]; got != 1 {
		t.Fatalf("expected one succeeded job, got %d", got)
	}
}

func TestTransferFailsAfterAttemptCeiling(t *testing.T) {
	h := newHarness(t)
	c := h.build(func(b *Builder) { b.WithSimulatorRand(func() float64 { return 1 }) })
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	jobID, err := c.SubmitTransfer(ctx, validTransfer())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, err := c.WaitJob(waitCtx, jobID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if snap.Status != JobFailed || snap.Attempts != 5 {
		t.Fatalf("expected failure after 5 attempts, got %s %d", snap.Status, snap.Attempts)
	}
	if snap.FailureReason != tracker.CongestionReason || !errors.Is(snap.Err, ErrPolicyFailure) {
		t.Fatalf("unexpected failure classification %q %v", snap.FailureReason, snap.Err)
	}
	if snap.Progress() != "5/5" {
		t.Fatalf("unexpected progress %s", snap.Progress())
	}
	if got := c.MetricsSnapshot().Counters[MetricJobPolicyFailure]; got != 1 {
		t.Fatalf("expected one policy failure, got %d", got)
	}
}

func TestLogoutCancelsTrackedJobs(t *testing.T) {
	h := newHarness(t)
	var mu sync.Mutex
	calls := 0
	c := h.build(func(b *Builder) {
		b.WithTrackerTimer(neverTimer)
		b.WithJobObserver(func(JobSnapshot) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	})
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	jobID, err := c.SubmitTransfer(ctx, validTransfer())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if snap, ok := c.Job(jobID); !ok || snap.Status != JobPending {
		t.Fatalf("expected pending job, got %+v %v", snap, ok)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := c.Job(jobID); ok {
		t.Fatal("expected job detached by logout")
	}
	if _, err := c.WaitJob(ctx, jobID); !errors.Is(err, ErrJobNotTracked) {
		t.Fatalf("expected ErrJobNotTracked, got %v", err)
	}
	if got := c.MetricsSnapshot().Counters[MetricJobsCancelled]; got != 1 {
		t.Fatalf("expected one cancelled job, got %d", got)
	}

	c.Close()
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Fatalf("expected no snapshots from a cancelled job, got %d", calls)
	}
}

func TestNewSessionDetachesOldJobs(t *testing.T) {
	h := newHarness(t)
	c := h.build(func(b *Builder) { b.WithTrackerTimer(neverTimer) })
	ctx := context.Background()

	if err := c.Login(ctx, "first"); err != nil {
		t.Fatalf("login: %v", err)
	}
	jobID, err := c.SubmitTransfer(ctx, validTransfer())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := c.Login(ctx, "second"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if _, ok := c.Job(jobID); ok {
		t.Fatal("expected job of the previous session to be detached")
	}
}

func TestAuditTrailOfLoginAndLogout(t *testing.T) {
	h := newHarness(t)
	sink := NewChannelSink(16)
	c := h.build(func(b *Builder) {
		cfg := h.config()
		cfg.Audit.Enabled = true
		b.WithConfig(cfg).WithAuditSink(sink)
	})
	ctx := context.Background()

	if err := c.Login(ctx, "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	c.Close()

	var types []string
	for len(sink.Events()) > 0 {
		types = append(types, (<-sink.Events()).EventType)
	}
	want := []string{auditEventLoginSuccess, auditEventLogout}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
}

func TestClosedClientRejectsCalls(t *testing.T) {
	h := newHarness(t)
	c := h.build()
	c.Close()
	c.Close()

	if err := c.Login(context.Background(), "cred"); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
	if err := c.Logout(context.Background()); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
}

func TestKeyGenerationFailureFailsLogin(t *testing.T) {
	h := newHarness(t)
	c := h.build(func(b *Builder) {
		b.WithKeyGenerator(func() (sessionkey.Material, error) {
			return sessionkey.Material{}, errors.New("entropy exhausted")
		})
	})

	if err := c.Login(context.Background(), "cred"); !errors.Is(err, flows.ErrKeyGeneration) {
		t.Fatalf("expected ErrKeyGeneration, got %v", err)
	}
	if s := c.Session(); s.Status != StatusError || s.Authenticated || s.LastError == "" {
		t.Fatalf("expected Error with a message, got %s %q", s.Status, s.LastError)
	}
	if _, ok := h.stored(session.KeyAuthToken); ok {
		t.Fatal("nothing should be persisted when key generation fails")
	}
}

func TestMetricsOptions(t *testing.T) {
	h := newHarness(t)
	c := h.build(func(b *Builder) { b.WithLatencyHistograms(true) })
	if err := c.Login(context.Background(), "cred"); err != nil {
		t.Fatalf("login: %v", err)
	}
	var observed uint64
	for _, n := range c.MetricsSnapshot().Histograms[MetricLoginLatency] {
		observed += n
	}
	if observed != 1 {
		t.Fatalf("expected one latency observation, got %d", observed)
	}

	off := newHarness(t).build(func(b *Builder) { b.WithMetricsEnabled(false) })
	_ = off.Login(context.Background(), "cred")
	if snap := off.MetricsSnapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot with metrics disabled, got %+v", snap)
	}
}
