// Package auth implements the Discord OAuth2 PKCE login used to identify the
// user for queue attribution and to authorize backend calls.
package auth

import (
	"net/url"
	"strings"
)

const (
	// DiscordAuthURL is the Discord authorization endpoint.
	DiscordAuthURL = "https://discord.com/oauth2/authorize"

	// DiscordTokenURL is the Discord token endpoint.
	DiscordTokenURL = "https://discord.com/api/oauth2/token"

	// DiscordAPIBase is the Discord REST API base.
	DiscordAPIBase = "https://discord.com/api/v10"

	// DefaultRedirectURI is the default callback URI for the local server.
	DefaultRedirectURI = "http://127.0.0.1:8889/callback"
)

// DefaultScopes are the Discord scopes needed to list servers and identify the user.
var DefaultScopes = []string{"identify", "guilds"}

// Config holds the OAuth configuration.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
}

// NewConfig creates a new OAuth configuration with defaults.
func NewConfig(clientID string) *Config {
	return &Config{
		ClientID:    clientID,
		RedirectURI: DefaultRedirectURI,
		Scopes:      DefaultScopes,
	}
}

// BuildAuthURL constructs the Discord authorization URL with PKCE parameters.
func (c *Config) BuildAuthURL(pkce *PKCE) string {
	u, _ := url.Parse(DiscordAuthURL)

	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("code_challenge_method", "S256")
	q.Set("code_challenge", pkce.Challenge)
	q.Set("state", pkce.State)
	q.Set("prompt", "none")
	if len(c.Scopes) > 0 {
		q.Set("scope", strings.Join(c.Scopes, " "))
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// CallbackAddr returns the host:port the local callback server must listen on
// for the configured redirect URI.
func (c *Config) CallbackAddr() string {
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Host == "" {
		return "127.0.0.1:8889"
	}
	if u.Port() == "" {
		return u.Hostname() + ":80"
	}
	return u.Host
}
