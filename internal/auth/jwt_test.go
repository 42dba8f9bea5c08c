package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	schoolID := "school-1"
	issuer, err := NewIssuer("secret", "sms-nucleus", time.Minute)
	if err != nil {
		t.Fatalf("issuer error: %v", err)
	}

	token, err := issuer.Sign(Claims{
		UserID:   "user-1",
		Role:     "student",
		SchoolID: &schoolID,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if claims.UserID != "user-1" || claims.Role != "student" {
		t.Fatalf("unexpected claims")
	}
	if claims.SchoolID == nil || *claims.SchoolID != "school-1" {
		t.Fatalf("unexpected school claim")
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", "sms-nucleus", time.Minute); err == nil {
		t.Fatalf("expected missing secret to error")
	}
}

func TestTokensAreUnique(t *testing.T) {
	issuer, err := NewIssuer("secret", "sms-nucleus", time.Minute)
	if err != nil {
		t.Fatalf("issuer error: %v", err)
	}

	first, err := issuer.Sign(Claims{UserID: "user-1", Role: "student"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	second, err := issuer.Sign(Claims{UserID: "user-1", Role: "student"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct tokens for back-to-back mints")
	}
}
