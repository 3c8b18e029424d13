package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	rcerrors "github.com/tessro/riffcord/internal/errors"
)

func TestTokenIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"expired", time.Now().Add(-time.Hour), true},
		{"within buffer", time.Now().Add(30 * time.Second), true},
		{"valid", time.Now().Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &Token{ExpiresAt: tt.expiresAt}
			if got := tok.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	server := httptest.NewServer(handler)
	c := NewClient()
	c.TokenURL = server.URL + "/token"
	c.APIBase = server.URL
	return c, server.Close
}

func TestExchangeCode(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.FormValue("grant_type") != "authorization_code" || r.FormValue("code_verifier") != "verifier" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken:  "access",
			TokenType:    "Bearer",
			ExpiresIn:    604800,
			RefreshToken: "refresh",
		})
	})
	defer done()

	tok, err := c.ExchangeCode(context.Background(), "client", "code", DefaultRedirectURI, "verifier")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if tok.AccessToken != "access" || tok.RefreshToken != "refresh" {
		t.Errorf("token = %+v", tok)
	}
	if tok.IsExpired() {
		t.Error("fresh token reported as expired")
	}
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "new", ExpiresIn: 3600})
	})
	defer done()

	tok, err := c.Refresh(context.Background(), "client", "old_refresh")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tok.RefreshToken != "old_refresh" {
		t.Errorf("RefreshToken = %q, want old_refresh", tok.RefreshToken)
	}
}

func TestTokenError(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(tokenResponse{Error: "invalid_grant", ErrorDesc: "bad code"})
	})
	defer done()

	if _, err := c.ExchangeCode(context.Background(), "c", "x", "r", "v"); err == nil {
		t.Error("ExchangeCode() error = nil, want token error")
	}
}

func TestFetchUser(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"80351110224678912","username":"nelly","avatar":"abc"}`))
	})
	defer done()

	u, err := c.FetchUser(context.Background(), &Token{AccessToken: "access"})
	if err != nil {
		t.Fatalf("FetchUser() error = %v", err)
	}
	if u.ID != "80351110224678912" || u.Username != "nelly" {
		t.Errorf("user = %+v", u)
	}

	_, err = c.FetchUser(context.Background(), &Token{AccessToken: "wrong"})
	if !errors.Is(err, rcerrors.ErrNotAuthenticated) {
		t.Errorf("FetchUser() error = %v, want ErrNotAuthenticated", err)
	}
}
