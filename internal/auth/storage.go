package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tessro/riffcord/internal/core"
)

// DefaultSessionFileName is the default name for the session file.
const DefaultSessionFileName = "discord_session.json"

// Session is the stored login: tokens plus the identity they belong to.
type Session struct {
	Token *Token     `json:"token"`
	User  *core.User `json:"user"`
}

// SessionStorage handles persisting the session to disk.
type SessionStorage struct {
	path string
}

// NewSessionStorage creates a storage at path, or at
// ~/.config/riffcord/discord_session.json when path is empty.
func NewSessionStorage(path string) (*SessionStorage, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(configDir, "riffcord", DefaultSessionFileName)
	}
	return &SessionStorage{path: path}, nil
}

// Save persists a session with owner-only permissions.
func (s *SessionStorage) Save(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads the session, returning nil if none is stored.
func (s *SessionStorage) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

// Delete removes the stored session.
func (s *SessionStorage) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Path returns the path to the session file.
func (s *SessionStorage) Path() string {
	return s.path
}
