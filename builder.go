package goWallet

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/gateway/httpgateway"
	"github.com/MrEthical07/goWallet/gateway/simulated"
	"github.com/MrEthical07/goWallet/internal/audit"
	"github.com/MrEthical07/goWallet/internal/authstate"
	"github.com/MrEthical07/goWallet/session"
	"github.com/MrEthical07/goWallet/sessionkey"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Client. A Builder is single use.
type Builder struct {
	config Config
	store  session.KV
	redis  redis.UniversalClient

	gateways map[Mode]gateway.Gateway

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time
	keygen    func() (sessionkey.Material, error)
	timer     func(time.Duration) <-chan time.Time
	observer  func(JobSnapshot)
	deliver   func(email, code string)
	simRand   func() float64

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config:   DefaultConfig(),
		gateways: make(map[Mode]gateway.Gateway, 2),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the Session Store backend. Defaults to an in-memory store.
func (b *Builder) WithStore(kv session.KV) *Builder {
	b.store = kv
	return b
}

// WithRedis supplies the redis client behind the built-in simulator.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithGateway overrides the gateway used for mode.
func (b *Builder) WithGateway(mode Mode, gw gateway.Gateway) *Builder {
	b.gateways[mode] = gw
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithKeyGenerator(fn func() (sessionkey.Material, error)) *Builder {
	b.keygen = fn
	return b
}

// WithTrackerTimer replaces time.After in the job tracker.
func (b *Builder) WithTrackerTimer(fn func(time.Duration) <-chan time.Time) *Builder {
	b.timer = fn
	return b
}

// WithJobObserver receives every job snapshot the tracker applies. It runs
// on the tracker goroutine and must not block or call Login or Logout.
// Snapshots of a session that has ended are not delivered.
func (b *Builder) WithJobObserver(fn func(JobSnapshot)) *Builder {
	b.observer = fn
	return b
}

// WithCodeDelivery receives each code the built-in simulator issues.
func (b *Builder) WithCodeDelivery(fn func(email, code string)) *Builder {
	b.deliver = fn
	return b
}

// WithSimulatorRand replaces the random source of the built-in simulator.
func (b *Builder) WithSimulatorRand(fn func() float64) *Builder {
	b.simRand = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Client in the
// Initializing state.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	store := b.store
	if store == nil {
		store = session.NewMemoryKV()
	}
	keygen := b.keygen
	if keygen == nil {
		keygen = sessionkey.Generate
	}

	// -------- GATEWAYS --------
	sim := b.gateways[ModeSimulated]
	if sim == nil {
		if b.redis == nil {
			return nil, errors.New("redis client required for the simulated gateway")
		}
		s, err := simulated.New(b.redis, cfg.Simulator, simulated.Options{
			Logger:  logger,
			Now:     now,
			Rand:    b.simRand,
			Deliver: b.deliver,
		})
		if err != nil {
			return nil, err
		}
		sim = s
	}

	live := b.gateways[ModeLive]
	if live == nil {
		if cfg.Live.BaseURL != "" {
			hc, err := httpgateway.New(httpgateway.Config{
				BaseURL: cfg.Live.BaseURL,
				Timeout: cfg.Live.RequestTimeout,
			})
			if err != nil {
				return nil, err
			}
			live = hc
		} else {
			live = gateway.Unavailable{Reason: "live gateway base url not configured"}
		}
	}

	c := &Client{
		cfg:      cfg,
		repo:     session.NewRepository(store),
		gateways: map[Mode]gateway.Gateway{ModeSimulated: sim, ModeLive: live},
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
		now:      now,
		keygen:   keygen,
		timer:    b.timer,
		observer: b.observer,
		state: authstate.Snapshot{
			Status: authstate.Initializing,
			Mode:   cfg.DefaultMode,
		},
	}
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Retain:     []string{auditEventTransferSubmitted, auditEventJobSucceeded, auditEventJobFailed},
	}, b.auditSink, now)

	b.built = true
	return c, nil
}
