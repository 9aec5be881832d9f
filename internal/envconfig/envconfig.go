// Package envconfig loads binary settings from the environment and an
// optional .env file, and turns them into a client configuration.
package envconfig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	goWallet "github.com/MrEthical07/goWallet"
	"github.com/MrEthical07/goWallet/gateway/simulated"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// DemoSigningKey signs simulator tokens when none is configured, so tokens
// survive a restart of the demo binaries. It is not a secret.
const DemoSigningKey = "walletdemo-local-simulator-signing-key"

// Settings are the WALLET_* variables shared by the binaries.
type Settings struct {
	Mode      string `mapstructure:"WALLET_MODE"`
	StorePath string `mapstructure:"WALLET_STORE_PATH"`
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	LiveBaseURL string        `mapstructure:"WALLET_LIVE_BASE_URL"`
	LiveTimeout time.Duration `mapstructure:"WALLET_LIVE_TIMEOUT"`

	SigningKey  string `mapstructure:"WALLET_SIMULATOR_SIGNING_KEY"`
	DemoDelays  bool   `mapstructure:"WALLET_SIMULATOR_DELAYS"`
	RequireCode bool   `mapstructure:"WALLET_SIMULATOR_REQUIRE_CODE"`

	PollInterval time.Duration `mapstructure:"WALLET_POLL_INTERVAL"`
	MaxAttempts  int           `mapstructure:"WALLET_MAX_ATTEMPTS"`

	LogLevel  string `mapstructure:"WALLET_LOG_LEVEL"`
	LogFormat string `mapstructure:"WALLET_LOG_FORMAT"`
	Audit     bool   `mapstructure:"WALLET_AUDIT"`

	ListenAddr     string `mapstructure:"WALLET_GATEWAY_ADDR"`
	AllowedOrigins string `mapstructure:"WALLET_ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"WALLET_MODE":                   "simulated",
	"WALLET_STORE_PATH":             ".walletdemo/session.json",
	"REDIS_ADDR":                    "",
	"WALLET_LIVE_BASE_URL":          "",
	"WALLET_LIVE_TIMEOUT":           "30s",
	"WALLET_SIMULATOR_SIGNING_KEY":  DemoSigningKey,
	"WALLET_SIMULATOR_DELAYS":       true,
	"WALLET_SIMULATOR_REQUIRE_CODE": false,
	"WALLET_POLL_INTERVAL":          "3s",
	"WALLET_MAX_ATTEMPTS":           5,
	"WALLET_LOG_LEVEL":              "info",
	"WALLET_LOG_FORMAT":             "text",
	"WALLET_AUDIT":                  false,
	"WALLET_GATEWAY_ADDR":           ":8085",
	"WALLET_ALLOWED_ORIGINS":        "",
}

// Load reads dir/.env when present, then lets the environment override it.
func Load(dir string) (Settings, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := s.ParseMode(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ParseMode maps WALLET_MODE onto a client mode.
func (s Settings) ParseMode() (goWallet.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s.Mode)) {
	case "", "simulated", "demo":
		return goWallet.ModeSimulated, nil
	case "live":
		return goWallet.ModeLive, nil
	default:
		return 0, fmt.Errorf("WALLET_MODE must be simulated or live, got %q", s.Mode)
	}
}

// ClientConfig builds a validated client configuration from s.
func (s Settings) ClientConfig() (goWallet.Config, error) {
	mode, err := s.ParseMode()
	if err != nil {
		return goWallet.Config{}, err
	}

	cfg := goWallet.DefaultConfig()
	cfg.DefaultMode = mode
	if !s.DemoDelays {
		cfg.Simulator.Delays = simulated.Delays{}
	}
	cfg.Simulator.RequireCode = s.RequireCode
	if s.SigningKey != "" {
		cfg.Simulator.SigningKey = []byte(s.SigningKey)
	}
	if s.PollInterval > 0 {
		cfg.Tracker.Interval = s.PollInterval
	}
	if s.MaxAttempts > 0 {
		cfg.Tracker.MaxAttempts = s.MaxAttempts
	}
	cfg.Live.BaseURL = strings.TrimRight(strings.TrimSpace(s.LiveBaseURL), "/")
	if s.LiveTimeout > 0 {
		cfg.Live.RequestTimeout = s.LiveTimeout
	}
	cfg.Audit.Enabled = s.Audit

	if err := cfg.Validate(); err != nil {
		return goWallet.Config{}, err
	}
	return cfg, nil
}

// Origins splits WALLET_ALLOWED_ORIGINS on commas.
func (s Settings) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Logger builds the slog logger selected by WALLET_LOG_LEVEL and
// WALLET_LOG_FORMAT.
func (s Settings) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(s.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ConnectRedis dials addr, or starts an embedded miniredis when addr is
// empty. The returned func releases both.
func ConnectRedis(ctx context.Context, addr string) (redis.UniversalClient, func(), error) {
	cleanup := func() {}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		addr = mr.Addr()
		cleanup = mr.Close
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		cleanup()
		return nil, nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	release := cleanup
	return client, func() {
		_ = client.Close()
		release()
	}, nil
}
