package simulated

import (
	"errors"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
)

// Delays are the artificial latencies applied per operation.
type Delays struct {
	Exchange      time.Duration
	RequestCode   time.Duration
	VerifyCode    time.Duration
	VerifySession time.Duration
	Logout        time.Duration
	Networks      time.Duration
	Tokens        time.Duration
	Submit        time.Duration
	Status        time.Duration
}

// DemoDelays mirrors the latencies of the hosted demo.
func DemoDelays() Delays {
	return Delays{
		Exchange:      1500 * time.Millisecond,
		RequestCode:   1000 * time.Millisecond,
		VerifyCode:    1500 * time.Millisecond,
		VerifySession: 500 * time.Millisecond,
		Logout:        300 * time.Millisecond,
		Networks:      800 * time.Millisecond,
		Tokens:        600 * time.Millisecond,
		Submit:        2000 * time.Millisecond,
		Status:        1000 * time.Millisecond,
	}
}

// Config configures a Simulator.
type Config struct {
	Delays Delays

	SuccessFromAttempt int
	SuccessProbability float64

	CodeLength int
	// RequireCode makes verification compare the issued code. When false,
	// any well-formed code is accepted for the current challenge.
	RequireCode       bool
	MaxVerifyAttempts int
	ChallengeTTL      time.Duration
	RequestLimit      int
	RequestWindow     time.Duration
	// SubmitLimit caps transfer submissions per user within SubmitWindow.
	// Zero disables the limit.
	SubmitLimit  int
	SubmitWindow time.Duration

	TokenTTL   time.Duration
	SigningKey []byte
	Issuer     string

	JobTTL time.Duration

	VendorID      string
	VendorAddress string
	RedisPrefix   string

	Networks []gateway.Network
	Tokens   []gateway.Token
}

// DefaultNetworks is the catalog served when Config.Networks is empty.
func DefaultNetworks() []gateway.Network {
	return []gateway.Network{
		{CAIPID: "eip155:84532", Name: "BASE_TESTNET", ChainID: "84532", Type: "EVM", SponsorshipEnabled: true},
		{CAIPID: "eip155:8453", Name: "BASE", ChainID: "8453", Type: "EVM"},
		{CAIPID: "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1", Name: "SOLANA_DEVNET", ChainID: "103", Type: "SVM"},
	}
}

// DefaultTokens is the catalog served when Config.Tokens is empty.
func DefaultTokens() []gateway.Token {
	return []gateway.Token{
		{Name: "USD Coin", Symbol: "USDC", Address: "0xa0b86a33e6b95b37e3d8d8e5e8f8c8a8a8a8a8a8", NetworkName: "BASE_TESTNET", Decimals: 6},
		{Name: "Wrapped Ethereum", Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", NetworkName: "BASE_TESTNET", Decimals: 18},
	}
}

// DefaultConfig returns a Config with zero delays.
func DefaultConfig() Config {
	return Config{
		SuccessFromAttempt: 2,
		SuccessProbability: 0.7,
		CodeLength:         gateway.CodeLength,
		MaxVerifyAttempts:  5,
		ChallengeTTL:       10 * time.Minute,
		RequestLimit:       5,
		RequestWindow:      time.Minute,
		TokenTTL:           24 * time.Hour,
		Issuer:             "wallet-simulator",
		JobTTL:             time.Hour,
		VendorID:           "vendor_simulated",
		RedisPrefix:        "wsim",
		Networks:           DefaultNetworks(),
		Tokens:             DefaultTokens(),
	}
}

func (c *Config) Validate() error {
	if c.SuccessFromAttempt < 0 {
		return errors.New("simulator SuccessFromAttempt must be >= 0")
	}
	if c.SuccessProbability < 0 || c.SuccessProbability > 1 {
		return errors.New("simulator SuccessProbability must be within [0,1]")
	}
	if c.CodeLength < 4 || c.CodeLength > 10 {
		return errors.New("simulator CodeLength must be within [4,10]")
	}
	if c.MaxVerifyAttempts <= 0 {
		return errors.New("simulator MaxVerifyAttempts must be > 0")
	}
	if c.ChallengeTTL <= 0 || c.TokenTTL <= 0 || c.JobTTL <= 0 {
		return errors.New("simulator TTLs must be > 0")
	}
	if c.RequestLimit < 0 || (c.RequestLimit > 0 && c.RequestWindow <= 0) {
		return errors.New("simulator RequestWindow must be > 0 when RequestLimit is set")
	}
	if c.SubmitLimit < 0 || (c.SubmitLimit > 0 && c.SubmitWindow <= 0) {
		return errors.New("simulator SubmitWindow must be > 0 when SubmitLimit is set")
	}
	if len(c.SigningKey) > 0 && len(c.SigningKey) < 16 {
		return errors.New("simulator SigningKey must be at least 16 bytes")
	}
	if len(c.Networks) == 0 {
		return errors.New("simulator requires at least one network")
	}
	return nil
}
