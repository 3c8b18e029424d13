package config

// Config is the root configuration structure.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Discord DiscordConfig `toml:"discord"`
	Sync    SyncConfig    `toml:"sync"`
	Guild   GuildConfig   `toml:"guild"`
	Device  DeviceConfig  `toml:"device"`
	Notify  NotifyConfig  `toml:"notify"`
	Tail    TailConfig    `toml:"tail"`
	TUI     TUIConfig     `toml:"tui"`
	Log     LogConfig     `toml:"log"`
	State   StateConfig   `toml:"state"`
}

// BackendConfig holds the bot backend endpoints.
type BackendConfig struct {
	BaseURL    string `toml:"base_url"`
	ServersURL string `toml:"servers_url"`
	Timeout    int    `toml:"timeout"`
}

// DiscordConfig holds Discord OAuth settings.
type DiscordConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
}

// SyncConfig holds push channel and reconciliation timing, in milliseconds.
type SyncConfig struct {
	DebounceMS           int     `toml:"debounce_ms"`
	PendingTimeoutMS     int     `toml:"pending_timeout_ms"`
	ReconnectBaseMS      int     `toml:"reconnect_base_ms"`
	ReconnectFactor      float64 `toml:"reconnect_factor"`
	ReconnectMaxMS       int     `toml:"reconnect_max_ms"`
	ReconnectMaxAttempts int     `toml:"reconnect_max_attempts"`
}

// GuildConfig holds guild context polling settings, in milliseconds.
type GuildConfig struct {
	PollIntervalMS    int `toml:"poll_interval_ms"`
	ServersThrottleMS int `toml:"servers_throttle_ms"`
}

// DeviceConfig holds on-device playback settings.
type DeviceConfig struct {
	Volume int `toml:"volume"`
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	Desktop bool `toml:"desktop"`
}

// TailConfig holds settings for tail/follow mode.
type TailConfig struct {
	Emoji     bool `toml:"emoji"`
	Timestamp bool `toml:"timestamp"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme"`
	RefreshInterval int    `toml:"refresh_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// StateConfig holds the location of persisted preferences.
type StateConfig struct {
	Path string `toml:"path"`
}
