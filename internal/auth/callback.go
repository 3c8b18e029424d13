package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"time"
)

// ErrStateMismatch is returned when the redirect carries an unexpected state.
var ErrStateMismatch = errors.New("state mismatch: possible CSRF attack")

// CallbackResult contains the result of the OAuth redirect.
type CallbackResult struct {
	Code  string
	State string
	Error string
}

// CallbackServer receives the OAuth redirect on a local port.
type CallbackServer struct {
	server   *http.Server
	listener net.Listener
	state    string
	result   chan CallbackResult
}

// NewCallbackServer listens on addr (host:port, port 0 picks one) and only
// accepts redirects carrying the given state.
func NewCallbackServer(addr, state string) (*CallbackServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	cs := &CallbackServer{
		listener: listener,
		state:    state,
		result:   make(chan CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", cs.handleCallback)
	cs.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return cs, nil
}

// Start serves in the background.
func (cs *CallbackServer) Start() {
	go func() {
		_ = cs.server.Serve(cs.listener)
	}()
}

// Wait blocks until a redirect arrives or ctx ends. A redirect with the wrong
// state yields ErrStateMismatch.
func (cs *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case result := <-cs.result:
		if result.Error == "" && result.State != cs.state {
			return result, ErrStateMismatch
		}
		return result, nil
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

// Shutdown stops the server.
func (cs *CallbackServer) Shutdown(ctx context.Context) error {
	return cs.server.Shutdown(ctx)
}

// Port returns the bound port.
func (cs *CallbackServer) Port() int {
	return cs.listener.Addr().(*net.TCPAddr).Port
}

func (cs *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := CallbackResult{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}

	// Only the first redirect counts
	select {
	case cs.result <- result:
	default:
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.Error != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "<h1>Discord login failed</h1><p>%s</p><p>You can close this window.</p>",
			html.EscapeString(result.Error))
		return
	}
	fmt.Fprint(w, "<h1>Signed in to riffcord</h1><p>You can close this window.</p>")
}
