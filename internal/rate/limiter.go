package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters. A zero Max disables the
// corresponding limit.
type Config struct {
	Prefix            string
	MaxCodeRequests   int
	CodeRequestWindow time.Duration
	MaxSubmissions    int
	SubmissionWindow  time.Duration
}

// Limiter enforces per-email and per-user budgets using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// AllowCodeRequest counts a verification code request for email and fails
// with ErrRateLimited once the window budget is exceeded.
func (l *Limiter) AllowCodeRequest(ctx context.Context, email string) error {
	if l.config.MaxCodeRequests <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.codeKey(email), l.config.CodeRequestWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxCodeRequests) {
		return ErrRateLimited
	}
	return nil
}

// AllowSubmission counts a transfer submission for userID.
func (l *Limiter) AllowSubmission(ctx context.Context, userID string) error {
	if l.config.MaxSubmissions <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.submitKey(userID), l.config.SubmissionWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSubmissions) {
		return ErrRateLimited
	}
	return nil
}

// ResetCodeRequests clears the code request counter for email. Called after
// a successful verification.
func (l *Limiter) ResetCodeRequests(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, l.codeKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CodeRequests returns the current counter for email. Missing keys read as zero.
func (l *Limiter) CodeRequests(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.codeKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 && ttl > 0 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) codeKey(email string) string {
	return l.config.Prefix + ":rc:" + strings.ToLower(strings.TrimSpace(email))
}

func (l *Limiter) submitKey(userID string) string {
	return l.config.Prefix + ":rs:" + userID
}
