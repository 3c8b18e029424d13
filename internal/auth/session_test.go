package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

func newTestManager(t *testing.T, handler http.HandlerFunc) (*Manager, *SessionStorage) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient()
	client.TokenURL = server.URL + "/token"
	client.APIBase = server.URL

	storage, err := NewSessionStorage(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(NewConfig("client"), client, storage, zerolog.Nop()), storage
}

func TestManagerNotSignedIn(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {})
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.User() != nil {
		t.Error("User() should be nil without a session")
	}
	if _, err := m.AccessToken(context.Background()); !errors.Is(err, rcerrors.ErrNotAuthenticated) {
		t.Errorf("AccessToken() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestManagerRefreshesExpiredToken(t *testing.T) {
	var refreshes atomic.Int32
	m, storage := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "fresh", ExpiresIn: 3600})
	})

	err := storage.Save(&Session{
		Token: &Token{AccessToken: "stale", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Hour)},
		User:  &core.User{ID: "1", Username: "nelly"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		tok, err := m.AccessToken(context.Background())
		if err != nil {
			t.Fatalf("AccessToken() error = %v", err)
		}
		if tok != "fresh" {
			t.Errorf("AccessToken() = %q, want fresh", tok)
		}
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}

	saved, _ := storage.Load()
	if saved.Token.AccessToken != "fresh" || saved.Token.RefreshToken != "r" {
		t.Errorf("saved token = %+v", saved.Token)
	}
	if u := m.User(); u == nil || u.Username != "nelly" {
		t.Errorf("User() = %+v", u)
	}
}

func TestManagerLogout(t *testing.T) {
	m, storage := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {})
	_ = storage.Save(&Session{Token: &Token{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)}})
	_ = m.Load()

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if m.Session() != nil {
		t.Error("Session() should be nil after Logout")
	}
	if s, _ := storage.Load(); s != nil {
		t.Error("session file should be gone after Logout")
	}
}

func TestManagerLoginRequiresClientID(t *testing.T) {
	m, _ := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {})
	m.config.ClientID = ""
	_, err := m.Login(context.Background(), "127.0.0.1:0", func(string) error { return nil }, func(string) {})
	if err == nil || rcerrors.GetSuggestion(err) == "" {
		t.Errorf("Login() error = %v, want error with suggestion", err)
	}
}
