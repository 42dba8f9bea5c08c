package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arnabBaruah009/sms-nucleus/internal/model"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		expect string
	}{
		{"", ""},
		{"Bearer", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer  abc ", "abc"},
		{"Token abc", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.header); got != tc.expect {
			t.Fatalf("bearerToken(%q) = %q, expected %q", tc.header, got, tc.expect)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		input  string
		expect string
	}{
		{"  +1-555-0100 ", "+1-555-0100"},
		{"+1-555-0100", "+1-555-0100"},
		{"ABC123", "abc123"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := normalizePhone(tc.input); got != tc.expect {
			t.Fatalf("normalizePhone(%q) = %q, expected %q", tc.input, got, tc.expect)
		}
	}
}

func TestSSOAgentHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	if got := ssoAgent(req); got != "sms-nucleus" {
		t.Fatalf("expected default agent, got %q", got)
	}
	req.Header.Set("X-SSO-Agent", "mobile")
	if got := ssoAgent(req); got != "mobile" {
		t.Fatalf("expected mobile agent, got %q", got)
	}
}

func TestUserFromContext(t *testing.T) {
	if user := userFromContext(context.Background()); user != nil {
		t.Fatalf("expected nil user on empty context")
	}
	want := &model.User{ID: "user-1"}
	ctx := context.WithValue(context.Background(), userKey{}, want)
	if got := userFromContext(ctx); got == nil || got.ID != "user-1" {
		t.Fatalf("expected user from context")
	}
}
