package goWallet

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/gateway/simulated"
	"github.com/MrEthical07/goWallet/session"
	"github.com/MrEthical07/goWallet/sessionkey"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func immediateTimer(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func neverTimer(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

type harness struct {
	t     *testing.T
	rdb   *redis.Client
	kv    *session.MemoryKV
	clock *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return &harness{t: t, rdb: rdb, kv: session.NewMemoryKV(), clock: newFakeClock()}
}

func (h *harness) config() Config {
	cfg := DefaultConfig()
	cfg.Simulator.Delays = simulated.Delays{}
	cfg.Simulator.SigningKey = testSigningKey
	cfg.Tracker.Interval = time.Millisecond
	return cfg
}

func (h *harness) simulator(rnd func() float64) *simulated.Simulator {
	h.t.Helper()
	sim, err := simulated.New(h.rdb, h.config().Simulator, simulated.Options{Now: h.clock.Now, Rand: rnd})
	if err != nil {
		h.t.Fatalf("simulator: %v", err)
	}
	return sim
}

// build returns a restored client. Options run before Build.
func (h *harness) build(opts ...func(*Builder)) *Client {
	h.t.Helper()
	b := New().
		WithConfig(h.config()).
		WithRedis(h.rdb).
		WithStore(h.kv).
		WithClock(h.clock.Now).
		WithTrackerTimer(immediateTimer)
	for _, opt := range opts {
		opt(b)
	}
	c, err := b.Build()
	if err != nil {
		h.t.Fatalf("build: %v", err)
	}
	h.t.Cleanup(c.Close)
	if err := c.Restore(context.Background()); err != nil {
		h.t.Fatalf("restore: %v", err)
	}
	return c
}

func (h *harness) stored(key string) (string, bool) {
	h.t.Helper()
	v, ok, err := h.kv.Get(context.Background(), key)
	if err != nil {
		h.t.Fatalf("store get: %v", err)
	}
	return v, ok
}

// countingGateway records which operations reached the wrapped gateway.
type countingGateway struct {
	gateway.Gateway
	requests atomic.Int32
	verifies atomic.Int32
	submits  atomic.Int32
	logouts  atomic.Int32
}

func (g *countingGateway) RequestEmailChallenge(ctx context.Context, email string) (string, error) {
	g.requests.Add(1)
	return g.Gateway.RequestEmailChallenge(ctx, email)
}

func (g *countingGateway) VerifyEmailChallenge(ctx context.Context, email, code, challengeToken string) (string, error) {
	g.verifies.Add(1)
	return g.Gateway.VerifyEmailChallenge(ctx, email, code, challengeToken)
}

func (g *countingGateway) SubmitTransfer(ctx context.Context, token string, keys sessionkey.Material, spec gateway.TransferSpec) (string, error) {
	g.submits.Add(1)
	return g.Gateway.SubmitTransfer(ctx, token, keys, spec)
}

func (g *countingGateway) InvalidateSession(ctx context.Context, token string) error {
	g.logouts.Add(1)
	return g.Gateway.InvalidateSession(ctx, token)
}

// slowGateway parks exchanges of the "slow" credential until released.
type slowGateway struct {
	gateway.Gateway
	entered chan struct{}
	release chan struct{}
}

func (g *slowGateway) ExchangeFederatedCredential(ctx context.Context, credential string) (string, error) {
	if credential == "slow" {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Gateway.ExchangeFederatedCredential(ctx, credential)
}

// parkedVerifyGateway parks the first session verification until released.
type parkedVerifyGateway struct {
	gateway.Gateway
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *parkedVerifyGateway) VerifySession(ctx context.Context, token string) (gateway.Identity, error) {
	g.once.Do(func() {
		g.entered <- struct{}{}
		<-g.release
	})
	return g.Gateway.VerifySession(ctx, token)
}

// parkedSubmitGateway holds every accepted submission until released.
type parkedSubmitGateway struct {
	gateway.Gateway
	entered chan struct{}
	release chan struct{}
}

func (g *parkedSubmitGateway) SubmitTransfer(ctx context.Context, token string, keys sessionkey.Material, spec gateway.TransferSpec) (string, error) {
	jobID, err := g.Gateway.SubmitTransfer(ctx, token, keys, spec)
	g.entered <- struct{}{}
	<-g.release
	return jobID, err
}

const validRecipient = "0x742d35Cc6639C0532fEb2C6F29C55E3d8E2b9f2A"

func validTransfer() TransferSpec {
	return TransferSpec{NetworkID: "eip155:84532", Recipient: validRecipient, Amount: 10}
}
