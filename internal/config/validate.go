package config

import (
	"errors"
	"fmt"
	"net/url"

	rcerrors "github.com/tessro/riffcord/internal/errors"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	if err := c.Discord.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("discord: %w", err))
	}
	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := c.Guild.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("guild: %w", err))
	}
	if err := c.Device.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("device: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", rcerrors.ErrInvalidConfig, errors.Join(errs...))
}

// Validate checks BackendConfig for errors. The base URL is required.
func (c *BackendConfig) Validate() error {
	if c.BaseURL == "" {
		return rcerrors.WithSuggestion(errors.New("base_url is required"),
			"Set backend.base_url in ~/.riffcordrc or RIFFCORD_BACKEND_URL")
	}
	if err := validateHTTPURL(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if c.ServersURL != "" {
		if err := validateHTTPURL(c.ServersURL); err != nil {
			return fmt.Errorf("invalid servers_url: %w", err)
		}
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// Validate checks DiscordConfig for errors.
func (c *DiscordConfig) Validate() error {
	if c.RedirectURI != "" {
		if _, err := url.Parse(c.RedirectURI); err != nil {
			return fmt.Errorf("invalid redirect_uri: %w", err)
		}
	}
	return nil
}

// Validate checks SyncConfig for errors.
func (c *SyncConfig) Validate() error {
	if c.DebounceMS < 0 || c.PendingTimeoutMS < 0 || c.ReconnectBaseMS < 0 || c.ReconnectMaxMS < 0 {
		return errors.New("durations must be non-negative")
	}
	if c.ReconnectFactor != 0 && c.ReconnectFactor < 1 {
		return fmt.Errorf("reconnect_factor must be at least 1, got %v", c.ReconnectFactor)
	}
	if c.ReconnectMaxAttempts < 0 {
		return errors.New("reconnect_max_attempts must be non-negative")
	}
	return nil
}

// Validate checks GuildConfig for errors.
func (c *GuildConfig) Validate() error {
	if c.PollIntervalMS < 0 || c.ServersThrottleMS < 0 {
		return errors.New("intervals must be non-negative")
	}
	return nil
}

// Validate checks DeviceConfig for errors.
func (c *DeviceConfig) Validate() error {
	if c.Volume < 0 || c.Volume > 100 {
		return errors.New("volume must be between 0 and 100")
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "dark", "light":
		// valid
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, dark, or light)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}
