// Package backend is the REST client for the music bot backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/config"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

const (
	// Retry configuration for transient errors
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// TokenSource supplies the bearer token for backend calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client is a bot backend client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serversURL string
	tokens     TokenSource
	logger     zerolog.Logger
	retryWait  time.Duration
}

// New creates a client for the configured backend.
func New(cfg config.BackendConfig) *Client {
	serversURL := cfg.ServersURL
	if serversURL == "" {
		serversURL = cfg.BaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serversURL: strings.TrimRight(serversURL, "/"),
		logger:     zerolog.Nop(),
		retryWait:  baseRetryWait,
	}
}

// SetTokenSource sets where bearer tokens come from. Without one, requests
// are sent unauthenticated.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// SetLogger enables request logging.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger.With().Str("component", "backend").Logger()
}

// BaseURL returns the backend base URL, used to derive the push channel URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.request(ctx, http.MethodGet, c.baseURL+path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.request(ctx, http.MethodPost, c.baseURL+path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.request(ctx, http.MethodDelete, c.baseURL+path, nil, nil)
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.AccessToken(ctx)
	if errors.Is(err, rcerrors.ErrNotAuthenticated) {
		return "", nil
	}
	return token, err
}

func (c *Client) request(ctx context.Context, method, fullURL string, body any, result any) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	var jsonBody []byte
	if body != nil {
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	event := c.logger.Debug().Str("method", method).Str("url", fullURL)
	if jsonBody != nil {
		event = event.RawJSON("body", jsonBody)
	}
	event.Msg("request")

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryWait * time.Duration(1<<(attempt-1))
			c.logger.Debug().
				Int("attempt", attempt).
				Dur("wait", wait).
				AnErr("last_error", lastErr).
				Msg("retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Debug().Err(err).Msg("network error")
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		c.logger.Debug().Int("status", resp.StatusCode).Msg("response")

		if resp.StatusCode >= 500 {
			lastErr = newAPIError(resp.StatusCode, respBody)
			c.logger.Debug().Err(lastErr).Msg("server error, will retry")
			continue
		}
		if resp.StatusCode >= 400 {
			return newAPIError(resp.StatusCode, respBody)
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}
		return nil
	}

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
	}
	return fmt.Errorf("%w: request failed after %d retries: %w", rcerrors.ErrNetworkError, maxRetries, lastErr)
}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else if payload.Error != "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}

// Is maps auth and rate-limit statuses onto the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case rcerrors.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case rcerrors.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// BuildURL builds a URL with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func guildPath(guildID string, parts ...string) string {
	segs := append([]string{"/api", url.PathEscape(guildID)}, parts...)
	return strings.Join(segs, "/")
}
