package simulated

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/internal"
	"github.com/MrEthical07/goWallet/internal/rate"
	"github.com/MrEthical07/goWallet/internal/stores"
	"github.com/MrEthical07/goWallet/jwt"
	"github.com/MrEthical07/goWallet/sessionkey"
	"github.com/redis/go-redis/v9"
)

const (
	methodFederated = "federated"
	methodEmail     = "email"
	relayerEnabled  = "enabled"
)

// Options carries the optional collaborators of a Simulator.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	// Rand returns a float in [0,1). Defaults to math/rand/v2.
	Rand func() float64
	// Deliver receives every issued verification code, standing in for the
	// email channel.
	Deliver func(email, code string)
}

// Simulator is a gateway.Gateway backed by Redis.
type Simulator struct {
	cfg        Config
	tokens     *jwt.Manager
	challenges *stores.ChallengeStore
	jobs       *stores.JobStore
	revoked    *stores.RevocationStore
	limiter    *rate.Limiter
	networks   map[string]gateway.Network

	logger  *slog.Logger
	now     func() time.Time
	rand    func() float64
	deliver func(email, code string)
}

var _ gateway.Gateway = (*Simulator)(nil)

// New builds a Simulator over redisClient.
func New(redisClient redis.UniversalClient, cfg Config, opts Options) (*Simulator, error) {
	if redisClient == nil {
		return nil, errors.New("simulator requires a redis client")
	}
	if len(cfg.Networks) == 0 {
		cfg.Networks = DefaultNetworks()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = DefaultTokens()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = mrand.Float64
	}

	key := cfg.SigningKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    key,
		Issuer:        cfg.Issuer,
		Leeway:        5 * time.Second,
		Now:           opts.Now,
	})
	if err != nil {
		return nil, err
	}

	networks := make(map[string]gateway.Network, len(cfg.Networks))
	for _, n := range cfg.Networks {
		networks[n.CAIPID] = n
	}
	if cfg.VendorAddress == "" {
		cfg.VendorAddress = sessionkey.OwnerAddress([]byte(cfg.VendorID))
	}

	return &Simulator{
		cfg:        cfg,
		tokens:     tokens,
		challenges: stores.NewChallengeStore(redisClient, cfg.RedisPrefix, opts.Now),
		jobs:       stores.NewJobStore(redisClient, cfg.RedisPrefix),
		revoked:    stores.NewRevocationStore(redisClient, cfg.RedisPrefix),
		limiter: rate.New(redisClient, rate.Config{
			Prefix:            cfg.RedisPrefix,
			MaxCodeRequests:   cfg.RequestLimit,
			CodeRequestWindow: cfg.RequestWindow,
			MaxSubmissions:    cfg.SubmitLimit,
			SubmissionWindow:  cfg.SubmitWindow,
		}),
		networks: networks,
		logger:   opts.Logger,
		now:      opts.Now,
		rand:     opts.Rand,
		deliver:  opts.Deliver,
	}, nil
}

// ExchangeFederatedCredential accepts any non-empty credential.
func (s *Simulator) ExchangeFederatedCredential(ctx context.Context, credential string) (string, error) {
	if err := s.pause(ctx, s.cfg.Delays.Exchange); err != nil {
		return "", err
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", fmt.Errorf("%w: empty credential", gateway.ErrAuthFailure)
	}
	return s.issue(internal.StableID("user", methodFederated+":"+credential), methodFederated)
}

func (s *Simulator) RequestEmailChallenge(ctx context.Context, email string) (string, error) {
	if err := s.pause(ctx, s.cfg.Delays.RequestCode); err != nil {
		return "", err
	}
	if !gateway.ValidEmail(email) {
		return "", gateway.ErrInvalidEmail
	}
	if err := s.limiter.AllowCodeRequest(ctx, email); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return "", gateway.ErrRateLimited
		}
		return "", transport(err)
	}

	code, err := internal.NewOTP(s.cfg.CodeLength)
	if err != nil {
		return "", transport(err)
	}
	token := internal.NewPrefixedID("email_session")
	record := &stores.ChallengeRecord{
		Email:     email,
		CodeHash:  internal.HashSecret(code),
		ExpiresAt: s.now().Add(s.cfg.ChallengeTTL).Unix(),
	}
	if err := s.challenges.Save(ctx, token, record, s.cfg.ChallengeTTL); err != nil {
		return "", transport(err)
	}
	if s.deliver != nil {
		s.deliver(strings.TrimSpace(email), code)
	}
	s.logger.Debug("verification code issued", slog.String("challenge", internal.TokenPrefix(token, 20)))
	return token, nil
}

func (s *Simulator) VerifyEmailChallenge(ctx context.Context, email, code, challengeToken string) (string, error) {
	if err := s.pause(ctx, s.cfg.Delays.VerifyCode); err != nil {
		return "", err
	}
	if !gateway.ValidCode(code, s.cfg.CodeLength) {
		return "", gateway.ErrInvalidCode
	}
	if strings.TrimSpace(challengeToken) == "" {
		return "", gateway.ErrInvalidChallenge
	}

	var err error
	if s.cfg.RequireCode {
		_, err = s.challenges.Consume(ctx, email, challengeToken, internal.HashSecret(code), s.cfg.MaxVerifyAttempts)
	} else {
		_, err = s.challenges.Claim(ctx, email, challengeToken)
	}
	switch {
	case err == nil:
	case errors.Is(err, stores.ErrChallengeNotFound), errors.Is(err, stores.ErrChallengeSuperseded):
		return "", gateway.ErrInvalidChallenge
	case errors.Is(err, stores.ErrChallengeMismatch),
		errors.Is(err, stores.ErrChallengeExpired),
		errors.Is(err, stores.ErrChallengeAttemptsExceeded):
		return "", gateway.ErrInvalidCode
	default:
		return "", transport(err)
	}

	if err := s.limiter.ResetCodeRequests(ctx, email); err != nil {
		s.logger.Warn("reset code request counter", slog.String("error", err.Error()))
	}
	return s.issue(internal.StableID("user", methodEmail+":"+email), methodEmail)
}

func (s *Simulator) VerifySession(ctx context.Context, token string) (gateway.Identity, error) {
	if err := s.pause(ctx, s.cfg.Delays.VerifySession); err != nil {
		return gateway.Identity{}, err
	}
	claims, err := s.authorize(ctx, token)
	if err != nil {
		return gateway.Identity{}, err
	}
	return gateway.Identity{
		UserID:         claims.UID,
		VendorID:       claims.VendorID,
		UserAddress:    sessionkey.OwnerAddress([]byte(claims.UID)),
		VendorAddress:  s.cfg.VendorAddress,
		SessionAdded:   true,
		RelayerOpsMode: relayerEnabled,
	}, nil
}

// InvalidateSession revokes the token id until the token would have expired.
func (s *Simulator) InvalidateSession(ctx context.Context, token string) error {
	if err := s.pause(ctx, s.cfg.Delays.Logout); err != nil {
		return err
	}
	claims, err := s.authorize(ctx, token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return transport(err)
	}
	return nil
}

func (s *Simulator) ListNetworks(ctx context.Context) ([]gateway.Network, error) {
	if err := s.pause(ctx, s.cfg.Delays.Networks); err != nil {
		return nil, err
	}
	out := make([]gateway.Network, len(s.cfg.Networks))
	copy(out, s.cfg.Networks)
	return out, nil
}

func (s *Simulator) ListTokens(ctx context.Context) ([]gateway.Token, error) {
	if err := s.pause(ctx, s.cfg.Delays.Tokens); err != nil {
		return nil, err
	}
	out := make([]gateway.Token, len(s.cfg.Tokens))
	copy(out, s.cfg.Tokens)
	return out, nil
}

func (s *Simulator) SubmitTransfer(ctx context.Context, token string, keys sessionkey.Material, spec gateway.TransferSpec) (string, error) {
	if err := s.pause(ctx, s.cfg.Delays.Submit); err != nil {
		return "", err
	}
	if keys.IsZero() || keys.Validate() != nil {
		return "", gateway.ErrSessionMissing
	}
	claims, err := s.authorize(ctx, token)
	if err != nil {
		return "", err
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}
	network, ok := s.networks[spec.NetworkID]
	if !ok {
		return "", fmt.Errorf("%w: unsupported network %s", gateway.ErrValidationFailure, spec.NetworkID)
	}
	if addr := strings.TrimSpace(spec.TokenAddress); addr != "" {
		if _, ok := gateway.FindToken(s.cfg.Tokens, network.Name, addr); !ok {
			return "", fmt.Errorf("%w: token %s is not listed on %s", gateway.ErrValidationFailure, addr, network.Name)
		}
	}
	if err := s.limiter.AllowSubmission(ctx, claims.UID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return "", gateway.ErrRateLimited
		}
		return "", transport(err)
	}

	record := &stores.JobRecord{
		JobID:        internal.NewPrefixedID("job"),
		UserID:       claims.UID,
		NetworkID:    spec.NetworkID,
		TokenAddress: spec.TokenAddress,
		Recipient:    strings.TrimSpace(spec.Recipient),
		Amount:       strconv.FormatFloat(spec.Amount, 'f', -1, 64),
		Status:       stores.JobPending,
		CreatedAt:    s.now().Unix(),
	}
	if err := s.jobs.Create(ctx, record, s.cfg.JobTTL); err != nil {
		return "", transport(err)
	}
	return record.JobID, nil
}

// CheckJobStatus counts one check against jobID and resolves it
// stochastically. token is not required; jobs are addressed by id.
func (s *Simulator) CheckJobStatus(ctx context.Context, _ string, jobID string) (gateway.StatusReport, error) {
	if err := s.pause(ctx, s.cfg.Delays.Status); err != nil {
		return gateway.StatusReport{}, err
	}
	if strings.TrimSpace(jobID) == "" {
		return gateway.StatusReport{}, gateway.ErrUnknownJob
	}

	var hashErr error
	record, err := s.jobs.Advance(ctx, jobID, func(r *stores.JobRecord) {
		prior := int(r.Checks) - 1
		if prior >= s.cfg.SuccessFromAttempt && s.rand() < s.cfg.SuccessProbability {
			hash, err := internal.NewTransactionHash()
			if err != nil {
				hashErr = err
				r.Status = stores.JobProcessing
				return
			}
			r.Status = stores.JobSucceeded
			r.TxHash = hash
			return
		}
		r.Status = stores.JobProcessing
	})
	if err != nil {
		if errors.Is(err, stores.ErrJobNotFound) {
			return gateway.StatusReport{}, gateway.ErrUnknownJob
		}
		return gateway.StatusReport{}, transport(err)
	}
	if hashErr != nil {
		s.logger.Warn("transaction hash generation failed", slog.String("error", hashErr.Error()))
	}

	return gateway.StatusReport{
		JobID:           record.JobID,
		Status:          gateway.JobStatus(record.Status),
		TransactionHash: record.TxHash,
		FailureReason:   record.FailureReason,
	}, nil
}

func (s *Simulator) issue(uid, method string) (string, error) {
	token, _, err := s.tokens.Issue(uid, s.cfg.VendorID, method)
	if err != nil {
		return "", transport(err)
	}
	return token, nil
}

func (s *Simulator) authorize(ctx context.Context, token string) (*jwt.SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, gateway.ErrSessionInvalid
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, gateway.ErrSessionInvalid
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, transport(err)
	}
	if revoked {
		return nil, gateway.ErrSessionInvalid
	}
	return claims, nil
}

func (s *Simulator) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return transport(err)
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return transport(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func transport(err error) error {
	return fmt.Errorf("%w: %v", gateway.ErrTransportFailure, err)
}
