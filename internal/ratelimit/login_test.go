package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginLimiter(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	limiter := NewLoginLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "9990001111")
		if err != nil {
			t.Fatalf("allow error: %v", err)
		}
		if !allowed {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "9990001111")
	if err != nil {
		t.Fatalf("allow error: %v", err)
	}
	if allowed {
		t.Fatalf("expected fourth attempt to be blocked")
	}

	// Other phones are unaffected.
	allowed, err = limiter.Allow(ctx, "9990002222")
	if err != nil {
		t.Fatalf("allow error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected unrelated phone to be allowed")
	}

	if err := limiter.Reset(ctx, "9990001111"); err != nil {
		t.Fatalf("reset error: %v", err)
	}
	allowed, err = limiter.Allow(ctx, "9990001111")
	if err != nil {
		t.Fatalf("allow error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected attempt after reset to be allowed")
	}
}

func TestLoginLimiterWindowExpiry(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	limiter := NewLoginLimiter(client, 1, time.Minute)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "9990001111"); !allowed {
		t.Fatalf("expected first attempt to be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "9990001111"); allowed {
		t.Fatalf("expected second attempt to be blocked")
	}

	server.FastForward(2 * time.Minute)

	if allowed, _ := limiter.Allow(ctx, "9990001111"); !allowed {
		t.Fatalf("expected attempt after window expiry to be allowed")
	}
}

func TestLoginLimiterDisabled(t *testing.T) {
	limiter := NewLoginLimiter(nil, 3, time.Minute)
	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(context.Background(), "9990001111")
		if err != nil || !allowed {
			t.Fatalf("expected disabled limiter to always allow")
		}
	}
}
