package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tessro/riffcord/internal/core"
)

func TestSessionStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage, err := NewSessionStorage(path)
	if err != nil {
		t.Fatalf("NewSessionStorage() error = %v", err)
	}

	s, err := storage.Load()
	if err != nil || s != nil {
		t.Fatalf("Load() = %v, %v; want nil, nil", s, err)
	}

	want := &Session{
		Token: &Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)},
		User:  &core.User{ID: "1", Username: "nelly"},
	}
	if err := storage.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := storage.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Token.AccessToken != "a" || got.User.Username != "nelly" {
		t.Errorf("Load() = %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("File permissions = %o, want 0600", mode)
	}

	if err := storage.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := storage.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
