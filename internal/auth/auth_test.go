package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"testing"
)

func TestBuildAuthURL(t *testing.T) {
	pkce := &PKCE{Verifier: "v", Challenge: "test_challenge", State: "test_state"}
	cfg := NewConfig("test_client_id")

	u, err := url.Parse(cfg.BuildAuthURL(pkce))
	if err != nil {
		t.Fatalf("BuildAuthURL() produced invalid URL: %v", err)
	}
	if u.Host != "discord.com" || u.Path != "/oauth2/authorize" {
		t.Errorf("BuildAuthURL() base = %s%s", u.Host, u.Path)
	}

	q := u.Query()
	tests := []struct {
		param string
		want  string
	}{
		{"client_id", "test_client_id"},
		{"response_type", "code"},
		{"redirect_uri", DefaultRedirectURI},
		{"code_challenge_method", "S256"},
		{"code_challenge", "test_challenge"},
		{"state", "test_state"},
		{"scope", "identify guilds"},
	}
	for _, tt := range tests {
		if got := q.Get(tt.param); got != tt.want {
			t.Errorf("BuildAuthURL() %s = %q, want %q", tt.param, got, tt.want)
		}
	}
}

func TestNewPKCE(t *testing.T) {
	pkce, err := NewPKCE()
	if err != nil {
		t.Fatalf("NewPKCE() error = %v", err)
	}
	if len(pkce.Verifier) != CodeVerifierLength {
		t.Errorf("Verifier length = %d, want %d", len(pkce.Verifier), CodeVerifierLength)
	}
	if len(pkce.State) != StateLength {
		t.Errorf("State length = %d, want %d", len(pkce.State), StateLength)
	}

	sum := sha256.Sum256([]byte(pkce.Verifier))
	if want := base64.RawURLEncoding.EncodeToString(sum[:]); pkce.Challenge != want {
		t.Errorf("Challenge = %q, want %q", pkce.Challenge, want)
	}

	other, _ := NewPKCE()
	if pkce.Verifier == other.Verifier || pkce.State == other.State {
		t.Error("two PKCE instances share values")
	}
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		redirect string
		want     string
	}{
		{DefaultRedirectURI, "127.0.0.1:8889"},
		{"http://localhost:9000/callback", "localhost:9000"},
		{"http://localhost/callback", "localhost:80"},
		{"::bad", "127.0.0.1:8889"},
	}
	for _, tt := range tests {
		cfg := &Config{RedirectURI: tt.redirect}
		if got := cfg.CallbackAddr(); got != tt.want {
			t.Errorf("CallbackAddr(%q) = %q, want %q", tt.redirect, got, tt.want)
		}
	}
}
