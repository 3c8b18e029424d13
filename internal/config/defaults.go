package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Timeout: 30,
		},
		Discord: DiscordConfig{
			RedirectURI: "http://127.0.0.1:8889/callback",
		},
		Sync: SyncConfig{
			DebounceMS:           50,
			PendingTimeoutMS:     10000,
			ReconnectBaseMS:      1000,
			ReconnectFactor:      1.5,
			ReconnectMaxMS:       30000,
			ReconnectMaxAttempts: 5,
		},
		Guild: GuildConfig{
			PollIntervalMS:    10000,
			ServersThrottleMS: 15000,
		},
		Device: DeviceConfig{
			Volume: 50,
		},
		Tail: TailConfig{
			Emoji: true,
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Backend
	if c.Backend.ServersURL == "" {
		c.Backend.ServersURL = c.Backend.BaseURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = d.Backend.Timeout
	}

	// Discord
	if c.Discord.RedirectURI == "" {
		c.Discord.RedirectURI = d.Discord.RedirectURI
	}

	// Sync
	if c.Sync.DebounceMS == 0 {
		c.Sync.DebounceMS = d.Sync.DebounceMS
	}
	if c.Sync.PendingTimeoutMS == 0 {
		c.Sync.PendingTimeoutMS = d.Sync.PendingTimeoutMS
	}
	if c.Sync.ReconnectBaseMS == 0 {
		c.Sync.ReconnectBaseMS = d.Sync.ReconnectBaseMS
	}
	if c.Sync.ReconnectFactor == 0 {
		c.Sync.ReconnectFactor = d.Sync.ReconnectFactor
	}
	if c.Sync.ReconnectMaxMS == 0 {
		c.Sync.ReconnectMaxMS = d.Sync.ReconnectMaxMS
	}
	if c.Sync.ReconnectMaxAttempts == 0 {
		c.Sync.ReconnectMaxAttempts = d.Sync.ReconnectMaxAttempts
	}

	// Guild
	if c.Guild.PollIntervalMS == 0 {
		c.Guild.PollIntervalMS = d.Guild.PollIntervalMS
	}
	if c.Guild.ServersThrottleMS == 0 {
		c.Guild.ServersThrottleMS = d.Guild.ServersThrottleMS
	}

	// Device
	if c.Device.Volume == 0 {
		c.Device.Volume = d.Device.Volume
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
