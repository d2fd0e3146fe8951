package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newMemoryLimiter(t *testing.T, limit int, window time.Duration, now *time.Time) *MemoryLimiter {
	t.Helper()
	limiter, err := NewMemoryLimiter(limit, window)
	if err != nil {
		t.Fatalf("new memory limiter: %v", err)
	}
	limiter.now = func() time.Time { return *now }
	return limiter
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := newMemoryLimiter(t, 2, time.Minute, &now)
	ctx := context.Background()

	if ok, _ := limiter.Allow(ctx, "ip-1"); !ok {
		t.Fatalf("first request should pass")
	}
	if ok, _ := limiter.Allow(ctx, "ip-1"); !ok {
		t.Fatalf("second request should pass")
	}
	ok, retryAfter := limiter.Allow(ctx, "ip-1")
	if ok {
		t.Fatalf("third request should be blocked")
	}
	if retryAfter < 29*time.Second || retryAfter > 31*time.Second {
		t.Fatalf("retryAfter = %s, want about 30s", retryAfter)
	}
	if ok, _ := limiter.Allow(ctx, "ip-2"); !ok {
		t.Fatalf("other keys keep their own quota")
	}

	now = now.Add(31 * time.Second)
	if ok, _ := limiter.Allow(ctx, "ip-1"); !ok {
		t.Fatalf("one token should have refilled")
	}
	if ok, _ := limiter.Allow(ctx, "ip-1"); ok {
		t.Fatalf("only one token should have refilled")
	}
}

func TestMemoryLimiterRejectionDoesNotConsume(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := newMemoryLimiter(t, 1, time.Minute, &now)
	ctx := context.Background()

	if ok, _ := limiter.Allow(ctx, ""); !ok {
		t.Fatalf("first request should pass")
	}
	for i := 0; i < 5; i++ {
		if ok, _ := limiter.Allow(ctx, " "); ok {
			t.Fatalf("blank keys share the unknown bucket")
		}
	}
	now = now.Add(61 * time.Second)
	if ok, _ := limiter.Allow(ctx, ""); !ok {
		t.Fatalf("rejected requests must not push the refill back")
	}
}

func TestMemoryLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := newMemoryLimiter(t, 1, time.Minute, &now)
	ctx := context.Background()
	limiter.Allow(ctx, "a")
	limiter.Allow(ctx, "b")

	now = now.Add(idleSweepInterval + time.Second)
	limiter.Allow(ctx, "c")
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.limiters["a"]; ok {
		t.Fatalf("idle key a should have been swept")
	}
	if _, ok := limiter.limiters["c"]; !ok {
		t.Fatalf("active key c should be kept")
	}
}

func TestNewMemoryLimiterValidation(t *testing.T) {
	if _, err := NewMemoryLimiter(0, time.Minute); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewMemoryLimiter(1, 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
