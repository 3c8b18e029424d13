// Package prefs persists the small set of settings that survive restarts.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultFileName is the default name for the preferences file.
	DefaultFileName = "state.json"

	// DefaultVolume is used when no volume has been saved yet.
	DefaultVolume = 50
)

// Player holds persisted player preferences.
type Player struct {
	Volume         int  `json:"volume"`
	IsOnDeviceMode bool `json:"is_on_device_mode"`
}

// Guild holds the persisted guild selection.
type Guild struct {
	ActiveServerID  string `json:"active_server_id"`
	ActiveChannelID string `json:"active_channel_id"`
}

// Prefs is the on-disk record.
type Prefs struct {
	Player Player `json:"player"`
	Guild  Guild  `json:"guild"`
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	return Prefs{Player: Player{Volume: DefaultVolume}}
}

// Store handles persisting preferences to disk.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store at the specified path.
// If path is empty, uses the default location (~/.config/riffcord/state.json).
func NewStore(path string) (*Store, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(configDir, "riffcord", DefaultFileName)
	}

	return &Store{path: path}, nil
}

// Load reads preferences from disk. A missing file yields Defaults.
func (s *Store) Load() (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Prefs, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Prefs{}, fmt.Errorf("failed to read preferences: %w", err)
	}

	p := Defaults()
	if err := json.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return p, nil
}

// SavePlayer replaces the player record, keeping the guild record.
func (s *Store) SavePlayer(player Player) error {
	return s.update(func(p *Prefs) { p.Player = player })
}

// SaveGuild replaces the guild record, keeping the player record.
func (s *Store) SaveGuild(guild Guild) error {
	return s.update(func(p *Prefs) { p.Guild = guild })
}

func (s *Store) update(fn func(*Prefs)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		// An unreadable file is replaced rather than blocking every save.
		p = Defaults()
	}
	fn(&p)
	return s.write(p)
}

func (s *Store) write(p Prefs) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	// Write to a temp file and rename so watchers never see a partial file
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Delete removes the stored preferences.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	return nil
}

// Path returns the path to the preferences file.
func (s *Store) Path() string {
	return s.path
}
