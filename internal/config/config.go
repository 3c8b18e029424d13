package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.riffcordrc, $XDG_CONFIG_HOME/riffcord/config.toml, ~/.config/riffcord/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	// Try loading from file
	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Environment overrides first so derived defaults (servers_url) see them
	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes the configuration as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// DefaultPath returns the XDG config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "riffcord", "config.toml")
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".riffcordrc"),
		DefaultPath(),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Backend
	if v := os.Getenv("RIFFCORD_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("RIFFCORD_SERVERS_URL"); v != "" {
		cfg.Backend.ServersURL = v
	}

	// Discord
	if v := os.Getenv("RIFFCORD_DISCORD_CLIENT_ID"); v != "" {
		cfg.Discord.ClientID = v
	}
	if v := os.Getenv("RIFFCORD_DISCORD_REDIRECT_URI"); v != "" {
		cfg.Discord.RedirectURI = v
	}

	// Sync
	if v := os.Getenv("RIFFCORD_SYNC_DEBOUNCE_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Sync.DebounceMS = i
		}
	}
	if v := os.Getenv("RIFFCORD_SYNC_PENDING_TIMEOUT_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Sync.PendingTimeoutMS = i
		}
	}

	// Notify
	if v := os.Getenv("RIFFCORD_NOTIFY_DESKTOP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Notify.Desktop = b
		}
	}

	// Log
	if v := os.Getenv("RIFFCORD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RIFFCORD_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	// State
	if v := os.Getenv("RIFFCORD_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Debounce returns the snapshot debounce window.
func (c *SyncConfig) Debounce() time.Duration { return ms(c.DebounceMS) }

// PendingTimeout returns the optimistic update safety timeout.
func (c *SyncConfig) PendingTimeout() time.Duration { return ms(c.PendingTimeoutMS) }

// ReconnectBase returns the first reconnect delay.
func (c *SyncConfig) ReconnectBase() time.Duration { return ms(c.ReconnectBaseMS) }

// ReconnectMax returns the reconnect delay cap.
func (c *SyncConfig) ReconnectMax() time.Duration { return ms(c.ReconnectMaxMS) }

// PollInterval returns the bot status poll interval.
func (c *GuildConfig) PollInterval() time.Duration { return ms(c.PollIntervalMS) }

// ServersThrottle returns the minimum interval between server list fetches.
func (c *GuildConfig) ServersThrottle() time.Duration { return ms(c.ServersThrottleMS) }

// RequestTimeout returns the HTTP client timeout.
func (c *BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
