package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "JWT_ISSUER", "ACCESS_TOKEN_TTL", "ACCESS_TOKEN_TTL_SECONDS", "SESSION_PURGE_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.JWTIssuer != "sms-nucleus" {
		t.Fatalf("unexpected issuer: %s", cfg.JWTIssuer)
	}
	if cfg.AccessTokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected token ttl: %s", cfg.AccessTokenTTL)
	}
	if cfg.SessionPurgeEnabled {
		t.Fatalf("expected session purge to default off")
	}
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	if got := getenvDuration("ACCESS_TOKEN_TTL", time.Hour); got != 15*time.Minute {
		t.Fatalf("expected 15m, got %s", got)
	}

	t.Setenv("LOGIN_RATE_WINDOW", "")
	t.Setenv("LOGIN_RATE_WINDOW_SECONDS", "90")
	if got := getenvDuration("LOGIN_RATE_WINDOW", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}

	if got := getenvDuration("UNSET_DURATION", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("SESSION_PURGE_ENABLED", "true")
	if !getenvBool("SESSION_PURGE_ENABLED", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("SESSION_PURGE_ENABLED", "not-a-bool")
	if getenvBool("SESSION_PURGE_ENABLED", false) {
		t.Fatalf("expected fallback on parse failure")
	}
}
