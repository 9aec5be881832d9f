package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goWallet/sessionkey"
)

// Persisted key names.
const (
	KeyAuthToken     = "auth_token"
	KeySessionConfig = "session_config"
	KeyDemoMode      = "demo_mode"
)

// ErrCorruptConfig is returned by Load when session_config is present but
// cannot be decoded into valid key material. The token is still returned.
var ErrCorruptConfig = errors.New("stored session config is corrupt")

// Snapshot is what a Repository holds. Mode is nil when demo_mode was never
// written.
type Snapshot struct {
	Token     string
	Keys      sessionkey.Material
	HasKeys   bool
	Simulated *bool
}

// Repository maps the three persisted keys onto typed values.
type Repository struct {
	kv KV
}

func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// Load reads every key. Backend errors abort the load; a corrupt
// session_config yields the remaining fields plus ErrCorruptConfig.
func (r *Repository) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	token, ok, err := r.kv.Get(ctx, KeyAuthToken)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		snap.Token = token
	}

	mode, ok, err := r.kv.Get(ctx, KeyDemoMode)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		simulated := strings.TrimSpace(mode) != "false"
		snap.Simulated = &simulated
	}

	raw, ok, err := r.kv.Get(ctx, KeySessionConfig)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		var keys sessionkey.Material
		if err := json.Unmarshal([]byte(raw), &keys); err != nil {
			return snap, fmt.Errorf("%w: %v", ErrCorruptConfig, err)
		}
		if err := keys.Validate(); err != nil {
			return snap, fmt.Errorf("%w: %v", ErrCorruptConfig, err)
		}
		snap.Keys = keys
		snap.HasKeys = true
	}

	return snap, nil
}

// Save writes token, keys and mode. Keys are written before the token so
// a partial write never leaves a token without its material.
func (r *Repository) Save(ctx context.Context, token string, keys sessionkey.Material, simulated bool) error {
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, KeySessionConfig, string(raw)); err != nil {
		return err
	}
	if err := r.kv.Set(ctx, KeyAuthToken, token); err != nil {
		return err
	}
	return r.SaveMode(ctx, simulated)
}

func (r *Repository) SaveMode(ctx context.Context, simulated bool) error {
	v := "false"
	if simulated {
		v = "true"
	}
	return r.kv.Set(ctx, KeyDemoMode, v)
}

// ClearSession removes token and key material but keeps demo_mode.
func (r *Repository) ClearSession(ctx context.Context) error {
	return r.kv.Delete(ctx, KeyAuthToken, KeySessionConfig)
}

// Clear removes all three keys.
func (r *Repository) Clear(ctx context.Context) error {
	return r.kv.Delete(ctx, KeyAuthToken, KeySessionConfig, KeyDemoMode)
}
