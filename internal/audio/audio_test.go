package audio

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tessro/riffcord/internal/core"
)

func TestGain(t *testing.T) {
	tests := []struct {
		percent    int
		wantVolume float64
		wantSilent bool
	}{
		{0, 0, true},
		{-5, 0, true},
		{100, 0, false},
		{150, 0, false},
		{50, -1, false},
		{25, -2, false},
	}
	for _, tt := range tests {
		v, silent := gain(tt.percent)
		if silent != tt.wantSilent || math.Abs(v-tt.wantVolume) > 1e-9 {
			t.Errorf("gain(%d) = %v, %v; want %v, %v", tt.percent, v, silent, tt.wantVolume, tt.wantSilent)
		}
	}
}

func TestClampVolume(t *testing.T) {
	for in, want := range map[int]int{-1: 0, 0: 0, 42: 42, 100: 100, 101: 100} {
		if got := clampVolume(in); got != want {
			t.Errorf("clampVolume(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID3-remote"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("ID3-local"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		location string
		want     string
		wantErr  bool
	}{
		{"http", server.URL + "/song.mp3", "ID3-remote", false},
		{"http not found", server.URL + "/missing", "", true},
		{"bare path", path, "ID3-local", false},
		{"file url", "file://" + path, "ID3-local", false},
		{"missing file", filepath.Join(t.TempDir(), "nope.mp3"), "", true},
		{"unsupported scheme", "ftp://example.com/a.mp3", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := open(context.Background(), server.Client(), tt.location)
			if (err != nil) != tt.wantErr {
				t.Fatalf("open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			data, _ := io.ReadAll(r)
			if string(data) != tt.want {
				t.Errorf("open() = %q, want %q", data, tt.want)
			}
		})
	}
}

func TestDirectResolver(t *testing.T) {
	got, err := DirectResolver(context.Background(), core.Track{URL: "https://x/a.mp3"})
	if err != nil || got != "https://x/a.mp3" {
		t.Errorf("DirectResolver() = %q, %v", got, err)
	}
}
