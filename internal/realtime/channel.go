// Package realtime maintains the push connection that streams playback
// snapshots for one server.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

const (
	// DefaultHandshakeTimeout bounds each dial.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultPongWait is how long the connection may stay silent before it
	// is treated as dead. Pings go out twice per window.
	DefaultPongWait = 60 * time.Second

	writeWait = time.Second
)

// SnapshotFunc receives every decoded update.
type SnapshotFunc func(core.Snapshot)

// Callbacks are invoked on connection lifecycle events. Any may be nil.
type Callbacks struct {
	OnOpen   func()
	OnClose  func()
	OnError  func(error)
	OnStatus func(core.ConnectionStatus)
}

// Options configures a Channel.
type Options struct {
	BaseURL          string
	Backoff          Backoff
	HandshakeTimeout time.Duration
	PongWait         time.Duration
	Header           http.Header
	Logger           zerolog.Logger
}

// Channel owns at most one live Handle.
type Channel struct {
	opts   Options
	dialer *websocket.Dialer

	mu      sync.Mutex
	current *Handle
}

// New creates a channel. BaseURL is the backend's http(s) URL.
func New(opts Options) *Channel {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.PongWait <= 0 {
		opts.PongWait = DefaultPongWait
	}
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	return &Channel{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
}

// Open connects to the push stream for contextID. Any previously opened
// handle is closed first.
func (c *Channel) Open(contextID string, onSnapshot SnapshotFunc, cb Callbacks) *Handle {
	c.mu.Lock()
	prev := c.current
	c.current = nil
	c.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		onSnapshot: onSnapshot,
		cb:         cb,
		backoff:    c.opts.Backoff,
		dialer:     c.dialer,
		header:     c.opts.Header,
		pongWait:   c.opts.PongWait,
		ctx:        ctx,
		cancel:     cancel,
		logger:     c.opts.Logger.With().Str("component", "realtime").Str("guild", contextID).Logger(),
	}

	wsURL, err := WebSocketURL(c.opts.BaseURL, contextID)
	if err != nil {
		h.logger.Error().Err(err).Msg("invalid push channel url")
		h.closed = true
		cancel()
		if cb.OnStatus != nil {
			cb.OnStatus(core.StatusError)
		}
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return h
	}
	h.url = wsURL

	c.mu.Lock()
	c.current = h
	c.mu.Unlock()

	go h.connect()
	return h
}

// Close closes the current handle, if any.
func (c *Channel) Close() error {
	c.mu.Lock()
	h := c.current
	c.current = nil
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Close()
}

// WebSocketURL derives the push endpoint for a server from the backend URL.
func WebSocketURL(baseURL, contextID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid base url %q: unsupported scheme", baseURL)
	}
	if contextID == "" {
		return "", rcerrors.ErrNoActiveServer
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(contextID)
	u.RawQuery = ""
	return u.String(), nil
}

// Handle is one logical connection, including its reconnects.
type Handle struct {
	url        string
	onSnapshot SnapshotFunc
	cb         Callbacks
	backoff    Backoff
	dialer     *websocket.Dialer
	header     http.Header
	pongWait   time.Duration
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	conn     *websocket.Conn
	timer    *time.Timer
	attempts int
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close stops the handle. It cancels any pending reconnect, releases the
// socket and never reconnects. Calling it again is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	conn := h.conn
	h.conn = nil
	h.mu.Unlock()

	h.cancel()
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return conn.Close()
	}
	return nil
}

func (h *Handle) status(s core.ConnectionStatus) {
	if h.cb.OnStatus != nil && !h.Closed() {
		h.cb.OnStatus(s)
	}
}

func (h *Handle) connect() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.timer = nil
	reconnecting := h.attempts > 0
	h.mu.Unlock()

	if reconnecting {
		h.status(core.StatusReconnecting)
	} else {
		h.status(core.StatusConnecting)
	}

	conn, resp, err := h.dialer.DialContext(h.ctx, h.url, h.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		ev := h.logger.Warn().Err(err)
		if resp != nil {
			ev = ev.Int("status", resp.StatusCode)
		}
		ev.Msg("push channel dial failed")
		h.scheduleReconnect()
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conn = conn
	h.attempts = 0
	h.mu.Unlock()

	h.logger.Info().Str("url", h.url).Msg("push channel connected")
	h.status(core.StatusConnected)
	if h.cb.OnOpen != nil && !h.Closed() {
		h.cb.OnOpen()
	}

	// A half-open socket never errors on read, so silence past pongWait
	// counts as a disconnect.
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	go h.pingLoop(conn)

	h.readLoop(conn)
}

func (h *Handle) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(h.pongWait / 2)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
		}
		h.mu.Lock()
		live := h.conn == conn
		h.mu.Unlock()
		if !live {
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			// The read loop reports the failure.
			return
		}
	}
}

func (h *Handle) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.handleDisconnect(conn, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))

		snap, ok, err := Decode(data)
		if err != nil {
			h.logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed message")
			continue
		}
		if !ok {
			continue
		}

		h.mu.Lock()
		live := !h.closed && h.conn == conn
		h.mu.Unlock()
		if !live {
			return
		}
		h.logger.Debug().Int64("version", snap.Version).Int("queue", len(snap.Queue)).Msg("snapshot")
		if h.onSnapshot != nil {
			h.onSnapshot(snap)
		}
	}
}

func (h *Handle) handleDisconnect(conn *websocket.Conn, cause error) {
	_ = conn.Close()

	h.mu.Lock()
	if h.closed || h.conn != conn {
		h.mu.Unlock()
		return
	}
	h.conn = nil
	h.mu.Unlock()

	h.logger.Warn().Err(cause).Msg("push channel closed unexpectedly")
	if h.cb.OnClose != nil {
		h.cb.OnClose()
	}
	h.scheduleReconnect()
}

func (h *Handle) scheduleReconnect() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if h.attempts >= h.backoff.MaxAttempts {
		attempts := h.attempts
		h.mu.Unlock()

		h.logger.Error().Int("attempts", attempts).Msg("giving up on push channel")
		h.status(core.StatusError)
		if h.cb.OnError != nil {
			h.cb.OnError(fmt.Errorf("%w after %d attempts", rcerrors.ErrReconnectExhausted, attempts))
		}
		return
	}
	delay := h.backoff.Delay(h.attempts)
	h.attempts++
	attempt := h.attempts
	h.timer = time.AfterFunc(delay, h.connect)
	h.mu.Unlock()

	h.logger.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("scheduling reconnect")
	h.status(core.StatusReconnecting)
}

// IsExhausted reports whether err means the reconnect budget ran out.
func IsExhausted(err error) bool {
	return errors.Is(err, rcerrors.ErrReconnectExhausted)
}
