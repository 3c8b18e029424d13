package realtime

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tessro/riffcord/internal/core"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// pushServer upgrades every request and hands the connection to serve along
// with its 1-based index.
type pushServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newPushServer(t *testing.T, serve func(n int, conn *websocket.Conn)) *pushServer {
	t.Helper()
	ps := &pushServer{}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(ps.hits.Add(1))
		if r.URL.Path != "/ws/42" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serve(n, conn)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func fastBackoff(attempts int) Backoff {
	return Backoff{Base: time.Millisecond, Factor: 1.5, Max: 5 * time.Millisecond, MaxAttempts: attempts}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// holdOpen blocks until the client goes away.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestChannelDeliversSnapshots(t *testing.T) {
	srv := newPushServer(t, func(n int, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"update","data":{"queue":[{"title":"A"}],"version":1}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"update","data":{"queue":[{"title":"A","isCurrent":true}],"version":2}}`))
		holdOpen(conn)
	})

	var (
		mu    sync.Mutex
		snaps []core.Snapshot
	)
	ch := New(Options{BaseURL: srv.URL, Backoff: fastBackoff(3)})
	defer ch.Close()

	ch.Open("42", func(s core.Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	}, Callbacks{})

	waitFor(t, "two snapshots", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if snaps[0].Version != 1 || snaps[1].Version != 2 {
		t.Errorf("versions = %d, %d", snaps[0].Version, snaps[1].Version)
	}
	if srv.hits.Load() != 1 {
		t.Errorf("malformed message caused a reconnect: %d connections", srv.hits.Load())
	}
}

func TestReconnectBound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var (
		errCount atomic.Int32
		mu       sync.Mutex
		statuses []core.ConnectionStatus
	)
	ch := New(Options{BaseURL: srv.URL, Backoff: fastBackoff(3)})
	defer ch.Close()

	ch.Open("42", nil, Callbacks{
		OnError: func(err error) {
			if !IsExhausted(err) {
				t.Errorf("OnError(%v), want exhausted", err)
			}
			errCount.Add(1)
		},
		OnStatus: func(s core.ConnectionStatus) {
			mu.Lock()
			statuses = append(statuses, s)
			mu.Unlock()
		},
	})

	waitFor(t, "exhaustion", func() bool { return errCount.Load() == 1 })
	time.Sleep(50 * time.Millisecond)

	if got := hits.Load(); got != 4 {
		t.Errorf("dial attempts = %d, want 4 (initial + 3 reconnects)", got)
	}
	if got := errCount.Load(); got != 1 {
		t.Errorf("OnError calls = %d, want 1", got)
	}
	mu.Lock()
	last := statuses[len(statuses)-1]
	mu.Unlock()
	if last != core.StatusError {
		t.Errorf("final status = %s, want error", last)
	}
}

func TestReconnectsAfterUnexpectedClose(t *testing.T) {
	srv := newPushServer(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.Close()
			return
		}
		holdOpen(conn)
	})

	var opens, closes atomic.Int32
	ch := New(Options{BaseURL: srv.URL, Backoff: fastBackoff(3)})
	defer ch.Close()

	ch.Open("42", nil, Callbacks{
		OnOpen:  func() { opens.Add(1) },
		OnClose: func() { closes.Add(1) },
	})

	waitFor(t, "second open", func() bool { return opens.Load() == 2 })
	if closes.Load() != 1 {
		t.Errorf("OnClose calls = %d, want 1", closes.Load())
	}
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	srv := newPushServer(t, func(n int, conn *websocket.Conn) { holdOpen(conn) })

	var opens, closes atomic.Int32
	ch := New(Options{BaseURL: srv.URL, Backoff: fastBackoff(3)})
	h := ch.Open("42", nil, Callbacks{
		OnOpen:  func() { opens.Add(1) },
		OnClose: func() { closes.Add(1) },
	})
	waitFor(t, "open", func() bool { return opens.Load() == 1 })

	if err := h.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !h.Closed() {
		t.Error("Closed() = false after Close")
	}

	time.Sleep(50 * time.Millisecond)
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("connections = %d, want 1 (no reconnect after Close)", got)
	}
	if closes.Load() != 0 {
		t.Error("OnClose fired for a caller-initiated close")
	}
}

func TestOpenClosesPreviousHandle(t *testing.T) {
	ended := make(chan int, 2)
	srv := newPushServer(t, func(n int, conn *websocket.Conn) {
		holdOpen(conn)
		ended <- n
	})

	var opens atomic.Int32
	ch := New(Options{BaseURL: srv.URL, Backoff: fastBackoff(3)})
	defer ch.Close()

	cb := Callbacks{OnOpen: func() { opens.Add(1) }}
	first := ch.Open("42", nil, cb)
	waitFor(t, "first open", func() bool { return opens.Load() == 1 })

	second := ch.Open("42", nil, cb)
	if !first.Closed() {
		t.Error("first handle still open after reopening")
	}
	waitFor(t, "second open", func() bool { return opens.Load() == 2 })
	if second.Closed() {
		t.Error("second handle closed")
	}

	// The first server-side connection must see the client go away.
	select {
	case n := <-ended:
		if n != 1 {
			t.Errorf("connection %d ended, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first connection was not released")
	}
}

func TestSilentConnectionReconnects(t *testing.T) {
	srv := newPushServer(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			// Swallow pings so the first connection looks half-open.
			conn.SetPingHandler(func(string) error { return nil })
		}
		holdOpen(conn)
	})

	var connected atomic.Int32
	ch := New(Options{BaseURL: srv.URL, Backoff: fastBackoff(3), PongWait: 100 * time.Millisecond})
	defer ch.Close()

	ch.Open("42", nil, Callbacks{
		OnOpen: func() { connected.Add(1) },
	})

	waitFor(t, "reconnect after silence", func() bool { return connected.Load() == 2 })

	// The second server answers pings, so the connection must survive
	// several pong windows.
	time.Sleep(400 * time.Millisecond)
	if got := srv.hits.Load(); got != 2 {
		t.Errorf("connections = %d, want 2", got)
	}
}
