package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
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
	return New(rdb, cfg), mr
}

func TestAllowCodeRequestFixedWindow(t *testing.T) {
	l, mr := newTestLimiter(t, Config{Prefix: "t", MaxCodeRequests: 2, CodeRequestWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.AllowCodeRequest(ctx, "User@Example.com"); err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
	}
	if err := l.AllowCodeRequest(ctx, "user@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.AllowCodeRequest(ctx, "user@example.com"); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestResetCodeRequests(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Prefix: "t", MaxCodeRequests: 5, CodeRequestWindow: time.Minute})
	ctx := context.Background()

	_ = l.AllowCodeRequest(ctx, "a@b.co")
	_ = l.AllowCodeRequest(ctx, "a@b.co")
	if n, _ := l.CodeRequests(ctx, "a@b.co"); n != 2 {
		t.Fatalf("expected 2 requests, got %d", n)
	}
	if err := l.ResetCodeRequests(ctx, "a@b.co"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.CodeRequests(ctx, "a@b.co"); n != 0 {
		t.Fatalf("expected 0 after reset, got %d", n)
	}
}

func TestZeroBudgetDisablesLimit(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Prefix: "t"})
	for i := 0; i < 20; i++ {
		if err := l.AllowSubmission(context.Background(), "u1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestRedisFailureIsReported(t *testing.T) {
	l, mr := newTestLimiter(t, Config{Prefix: "t", MaxCodeRequests: 1, CodeRequestWindow: time.Minute})
	mr.Close()
	if err := l.AllowCodeRequest(context.Background(), "a@b.co"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
