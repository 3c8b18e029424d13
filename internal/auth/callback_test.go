package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func hitCallback(t *testing.T, port int, query string) {
	t.Helper()
	go func() {
		time.Sleep(50 * time.Millisecond)
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?%s", port, query))
		if err != nil {
			t.Errorf("callback request failed: %v", err)
			return
		}
		_ = resp.Body.Close()
	}()
}

func TestCallbackServer(t *testing.T) {
	server, err := NewCallbackServer("127.0.0.1:0", "test_state")
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	server.Start()
	defer func() { _ = server.Shutdown(context.Background()) }()

	hitCallback(t, server.Port(), "code=test_code&state=test_state")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := server.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if result.Code != "test_code" {
		t.Errorf("Code = %q, want test_code", result.Code)
	}
}

func TestCallbackServerStateMismatch(t *testing.T) {
	server, err := NewCallbackServer("127.0.0.1:0", "expected")
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	server.Start()
	defer func() { _ = server.Shutdown(context.Background()) }()

	hitCallback(t, server.Port(), "code=c&state=forged")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := server.Wait(ctx); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("Wait() error = %v, want ErrStateMismatch", err)
	}
}

func TestCallbackServerTimeout(t *testing.T) {
	server, err := NewCallbackServer("127.0.0.1:0", "s")
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	server.Start()
	defer func() { _ = server.Shutdown(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := server.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}
