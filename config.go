package goWallet

import (
	"errors"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/gateway/simulated"
)

// Config is the complete Client configuration. Start from DefaultConfig.
type Config struct {
	// DefaultMode applies when demo_mode was never persisted.
	DefaultMode Mode
	OTP         OTPConfig
	Tracker     TrackerConfig
	Simulator   simulated.Config
	Live        LiveConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	// DegradedVendorAddress is the vendor address of the placeholder identity
	// used by a degraded simulated restore.
	DegradedVendorAddress string
}

// OTPConfig controls the email one-time code step.
type OTPConfig struct {
	CodeLength int
	// ResendCountdown is informational: it gates resend on the client and
	// never expires gateway state.
	ResendCountdown time.Duration
}

// TrackerConfig controls job polling.
type TrackerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// LiveConfig configures the HTTP gateway. An empty BaseURL leaves Live mode
// unavailable.
type LiveConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the stock configuration: simulated mode, 6 digit
// codes, a 300 second resend countdown, 3 second polling, 5 attempts, and
// the demo latencies on the simulator.
func DefaultConfig() Config {
	sim := simulated.DefaultConfig()
	sim.Delays = simulated.DemoDelays()
	return Config{
		DefaultMode: ModeSimulated,
		OTP: OTPConfig{
			CodeLength:      gateway.CodeLength,
			ResendCountdown: 300 * time.Second,
		},
		Tracker: TrackerConfig{
			Interval:    3 * time.Second,
			MaxAttempts: 5,
		},
		Simulator: sim,
		Live: LiveConfig{
			RequestTimeout: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Simulator.SigningKey = cloneBytes(cfg.Simulator.SigningKey)
	if cfg.Simulator.Networks != nil {
		out.Simulator.Networks = append([]gateway.Network(nil), cfg.Simulator.Networks...)
	}
	if cfg.Simulator.Tokens != nil {
		out.Simulator.Tokens = append([]gateway.Token(nil), cfg.Simulator.Tokens...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for values the Client cannot run with.
func (c *Config) Validate() error {
	if c.DefaultMode != ModeSimulated && c.DefaultMode != ModeLive {
		return errors.New("DefaultMode must be ModeSimulated or ModeLive")
	}

	if c.OTP.CodeLength <= 0 {
		return errors.New("OTP CodeLength must be > 0")
	}
	if c.OTP.ResendCountdown < 0 {
		return errors.New("OTP ResendCountdown must be >= 0")
	}
	if c.OTP.CodeLength != c.Simulator.CodeLength {
		return errors.New("OTP CodeLength must match Simulator CodeLength")
	}

	if c.Tracker.Interval <= 0 {
		return errors.New("Tracker Interval must be > 0")
	}
	if c.Tracker.MaxAttempts <= 0 {
		return errors.New("Tracker MaxAttempts must be > 0")
	}

	if err := c.Simulator.Validate(); err != nil {
		return err
	}

	if c.Live.RequestTimeout <= 0 {
		return errors.New("Live RequestTimeout must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
