package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterAllowSlidingWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	now := start
	limiter := Limiter{Client: client, Prefix: "test:", Now: func() time.Time { return now }}

	ctx := context.Background()
	window := time.Minute
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "invoice-send:user-1", window, max)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if remaining != max-(i+1) {
			t.Fatalf("unexpected remaining: %d", remaining)
		}
		now = now.Add(10 * time.Second)
	}

	for i := 0; i < 3; i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, "invoice-send:user-1", window, max)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if allowed || remaining != 0 {
			t.Fatalf("expected rejection, got allowed=%v remaining=%d", allowed, remaining)
		}
		if !reset.Equal(start.Add(window)) {
			t.Fatalf("reset should follow the oldest admitted request, got %v", reset)
		}
	}
	if n, _ := mr.ZMembers("test:invoice-send:user-1"); len(n) != max {
		t.Fatalf("rejected requests must not be kept, got %d members", len(n))
	}

	now = start.Add(window + 5*time.Second)
	allowed, remaining, _, err := limiter.Allow(ctx, "invoice-send:user-1", window, max)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed || remaining != 0 {
		t.Fatalf("expected one slot freed, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestLimiterWithoutClientAllows(t *testing.T) {
	allowed, remaining, _, err := Limiter{}.Allow(context.Background(), "k", time.Minute, 5)
	if err != nil || !allowed || remaining != 5 {
		t.Fatalf("unexpected result allowed=%v remaining=%d err=%v", allowed, remaining, err)
	}
}
