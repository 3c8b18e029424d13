package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessro/riffcord/internal/config"
	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

type staticToken string

func (s staticToken) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", rcerrors.ErrNotAuthenticated
	}
	return string(s), nil
}

type recorded struct {
	method string
	path   string
	body   string
	auth   string
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{r.Method, r.URL.RequestURI(), string(body), r.Header.Get("Authorization")})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	c := New(config.BackendConfig{BaseURL: server.URL, Timeout: 5})
	c.retryWait = time.Millisecond
	return c, &calls
}

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestPlaybackEndpoints(t *testing.T) {
	c, calls := newTestClient(t, ok)
	c.SetTokenSource(staticToken("tok"))
	ctx := context.Background()
	guild := "123456789012345678"

	user := &core.User{ID: "1", Username: "nelly"}
	steps := []struct {
		name string
		run  func() error
		want recorded
	}{
		{"resume", func() error { return c.Resume(ctx, guild) },
			recorded{method: "POST", path: "/api/" + guild + "/resume"}},
		{"pause", func() error { return c.Pause(ctx, guild) },
			recorded{method: "POST", path: "/api/" + guild + "/pause"}},
		{"skip", func() error { return c.Skip(ctx, guild) },
			recorded{method: "POST", path: "/api/" + guild + "/skip"}},
		{"add", func() error { return c.AddToQueue(ctx, guild, "https://youtu.be/x", user) },
			recorded{method: "POST", path: "/api/" + guild + "/queue",
				body: `{"url":"https://youtu.be/x","user":{"id":"1","username":"nelly","avatar":""}}`}},
		{"reorder", func() error { return c.ReorderQueue(ctx, guild, 1, 3) },
			recorded{method: "POST", path: "/api/" + guild + "/queue/reorder", body: `{"start":1,"end":3}`}},
		{"remove", func() error { return c.RemoveFromQueue(ctx, guild, 1) },
			recorded{method: "DELETE", path: "/api/" + guild + "/queue/1"}},
		{"leave", func() error { return c.Disconnect(ctx, guild) },
			recorded{method: "POST", path: "/api/" + guild + "/voice/leave"}},
		{"join", func() error { return c.JoinChannel(ctx, guild, "42") },
			recorded{method: "POST", path: "/api/" + guild + "/voice/join", body: `{"channel_id":"42"}`}},
	}

	for i, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			if err := step.run(); err != nil {
				t.Fatalf("%s error = %v", step.name, err)
			}
			got := (*calls)[i]
			if got.method != step.want.method || got.path != step.want.path {
				t.Errorf("request = %s %s, want %s %s", got.method, got.path, step.want.method, step.want.path)
			}
			if step.want.body != "" && got.body != step.want.body {
				t.Errorf("body = %s, want %s", got.body, step.want.body)
			}
			if got.auth != "Bearer tok" {
				t.Errorf("Authorization = %q, want Bearer tok", got.auth)
			}
		})
	}
}

func TestUnauthenticatedRequestsOmitHeader(t *testing.T) {
	c, calls := newTestClient(t, ok)
	c.SetTokenSource(staticToken(""))
	if err := c.Skip(context.Background(), "1"); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if (*calls)[0].auth != "" {
		t.Errorf("Authorization = %q, want none", (*calls)[0].auth)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Skip(context.Background(), "1"); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	err := c.Pause(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Fatalf("Pause() error = %v, want APIError boom", err)
	}
	if got := hits.Load(); got != maxRetries+1 {
		t.Errorf("attempts = %d, want %d", got, maxRetries+1)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad token"}`))
	})

	err := c.Resume(context.Background(), "1")
	if !errors.Is(err, rcerrors.ErrNotAuthenticated) {
		t.Errorf("Resume() error = %v, want ErrNotAuthenticated", err)
	}
	if hits.Load() != 1 {
		t.Errorf("attempts = %d, want 1", hits.Load())
	}
}

func TestNetworkErrorWrapsSentinel(t *testing.T) {
	c := New(config.BackendConfig{BaseURL: "http://127.0.0.1:1", Timeout: 1})
	c.retryWait = time.Millisecond
	err := c.Skip(context.Background(), "1")
	if !errors.Is(err, rcerrors.ErrNetworkError) {
		t.Errorf("Skip() error = %v, want ErrNetworkError", err)
	}
}

func TestGuildEndpoints(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/1/channels":
			_, _ = w.Write([]byte(`[{"id":"10","name":"General","position":0},{"id":"11","name":"Music","position":1}]`))
		case "/api/1/voice":
			_, _ = w.Write([]byte(`{"channel_id":"11","connected":true}`))
		case "/api/2/voice":
			_, _ = w.Write([]byte(`{"channel_id":null,"connected":false}`))
		case "/api/servers":
			_, _ = w.Write([]byte(`[
				{"id":"1","name":"Home","permissions":"32","bot_present":true},
				{"id":"2","name":"Work","owner":true,"permissions":0,"bot_present":false}
			]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	channels, err := c.VoiceChannels(ctx, "1")
	if err != nil {
		t.Fatalf("VoiceChannels() error = %v", err)
	}
	if len(channels) != 2 || channels[1].Name != "Music" || channels[1].ID != "11" {
		t.Errorf("VoiceChannels() = %+v", channels)
	}

	status, err := c.BotVoiceStatus(ctx, "1")
	if err != nil || status.ChannelID != "11" || !status.Connected {
		t.Errorf("BotVoiceStatus(1) = %+v, %v", status, err)
	}
	status, err = c.BotVoiceStatus(ctx, "2")
	if err != nil || status.ChannelID != "" || status.Connected {
		t.Errorf("BotVoiceStatus(2) = %+v, %v", status, err)
	}

	servers, err := c.Servers(ctx)
	if err != nil {
		t.Fatalf("Servers() error = %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("Servers() returned %d servers", len(servers))
	}
	if servers[0].Permissions != 32 || !servers[0].CanManage() {
		t.Errorf("servers[0] = %+v", servers[0])
	}
	if !servers[1].Owner || servers[1].BotPresent {
		t.Errorf("servers[1] = %+v", servers[1])
	}

	if _, err := c.VoiceChannels(ctx, "999"); !IsNotFound(err) {
		t.Errorf("VoiceChannels(999) error = %v, want not found", err)
	}
}

func TestServersUsesSeparateOrigin(t *testing.T) {
	servers := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "5", "name": "Elsewhere"}})
	}))
	defer servers.Close()

	c := New(config.BackendConfig{BaseURL: "http://127.0.0.1:1", ServersURL: servers.URL, Timeout: 5})
	got, err := c.Servers(context.Background())
	if err != nil {
		t.Fatalf("Servers() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "5" {
		t.Errorf("Servers() = %+v", got)
	}
}

func TestSearch(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":"a","title":"Song","url":"https://x/a","duration":185}]}`))
	})

	tracks, err := c.Search(context.Background(), "lofi beats")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(tracks) != 1 || tracks[0].Duration != 185*time.Second {
		t.Errorf("Search() = %+v", tracks)
	}
	if !strings.Contains((*calls)[0].path, "q=lofi+beats") {
		t.Errorf("path = %s", (*calls)[0].path)
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		path   string
		params map[string]string
		want   string
	}{
		{"/api/search", nil, "/api/search"},
		{"/api/search", map[string]string{}, "/api/search"},
		{"/api/search", map[string]string{"q": "test"}, "/api/search?q=test"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.path, tt.params); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.path, tt.params, got, tt.want)
		}
	}
}

func TestPermissionsUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Permissions
		wantErr bool
	}{
		{`"2147483647"`, 2147483647, false},
		{`32`, 32, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		var p Permissions
		err := json.Unmarshal([]byte(tt.in), &p)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if p != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, p, tt.want)
		}
	}
}
