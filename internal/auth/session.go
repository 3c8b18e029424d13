package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

// LoginTimeout bounds how long Login waits for the browser redirect.
const LoginTimeout = 5 * time.Minute

// Manager owns the stored session: it refreshes tokens on demand and
// supplies the attribution identity.
type Manager struct {
	config  *Config
	client  *Client
	storage *SessionStorage
	logger  zerolog.Logger

	mu      sync.Mutex
	session *Session
}

// NewManager creates a session manager.
func NewManager(config *Config, client *Client, storage *SessionStorage, logger zerolog.Logger) *Manager {
	return &Manager{
		config:  config,
		client:  client,
		storage: storage,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

// Load reads the stored session, if any.
func (m *Manager) Load() error {
	session, err := m.storage.Load()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return nil
}

// Session returns the loaded session or nil.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// User returns the signed-in user, or nil when not signed in.
func (m *Manager) User() *core.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.User == nil {
		return nil
	}
	u := *m.session.User
	return &u
}

// AccessToken returns a valid access token, refreshing it if expired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.Token == nil {
		return "", rcerrors.ErrNotAuthenticated
	}
	if !m.session.Token.IsExpired() {
		return m.session.Token.AccessToken, nil
	}
	if m.session.Token.RefreshToken == "" {
		return "", rcerrors.ErrNotAuthenticated
	}

	m.logger.Debug().Msg("refreshing access token")
	tok, err := m.client.Refresh(ctx, m.config.ClientID, m.session.Token.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	m.session.Token = tok
	if err := m.storage.Save(m.session); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Login runs the PKCE flow. open is called with the authorization URL; if it
// fails, prompt is called instead so the URL can be shown to the user.
func (m *Manager) Login(ctx context.Context, listenAddr string, open func(string) error, prompt func(string)) (*Session, error) {
	if m.config.ClientID == "" {
		return nil, rcerrors.WithSuggestion(
			fmt.Errorf("discord.client_id not configured"),
			"Set it in ~/.riffcordrc or via RIFFCORD_DISCORD_CLIENT_ID",
		)
	}

	pkce, err := NewPKCE()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE: %w", err)
	}

	server, err := NewCallbackServer(listenAddr, pkce.State)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	server.Start()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := m.config.BuildAuthURL(pkce)
	if err := open(authURL); err != nil {
		prompt(authURL)
	}

	ctx, cancel := context.WithTimeout(ctx, LoginTimeout)
	defer cancel()

	result, err := server.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("authentication failed: %s", result.Error)
	}

	tok, err := m.client.ExchangeCode(ctx, m.config.ClientID, result.Code, m.config.RedirectURI, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	user, err := m.client.FetchUser(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	session := &Session{Token: tok, User: user}
	if err := m.storage.Save(session); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.logger.Info().Str("user", user.Username).Msg("signed in")
	return session, nil
}

// Logout removes the stored session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return m.storage.Delete()
}
