package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStore(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "state.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	// Missing file yields defaults
	p, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Player.Volume != DefaultVolume || p.Player.IsOnDeviceMode {
		t.Errorf("Load() = %+v, want defaults", p)
	}

	if err := store.SavePlayer(Player{Volume: 30, IsOnDeviceMode: true}); err != nil {
		t.Fatalf("SavePlayer() error = %v", err)
	}
	if err := store.SaveGuild(Guild{ActiveServerID: "123", ActiveChannelID: "456"}); err != nil {
		t.Fatalf("SaveGuild() error = %v", err)
	}

	p, err = store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Player.Volume != 30 || !p.Player.IsOnDeviceMode {
		t.Errorf("Player = %+v, want saved values", p.Player)
	}
	if p.Guild.ActiveServerID != "123" || p.Guild.ActiveChannelID != "456" {
		t.Errorf("Guild = %+v, want saved values", p.Guild)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("File permissions = %o, want 0600", mode)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Errorf("Delete() on missing file error = %v", err)
	}
}

func TestStoreMutedVolumeSurvives(t *testing.T) {
	store, _ := NewStore(filepath.Join(t.TempDir(), "state.json"))
	if err := store.SavePlayer(Player{Volume: 0}); err != nil {
		t.Fatalf("SavePlayer() error = %v", err)
	}
	p, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Player.Volume != 0 {
		t.Errorf("Volume = %d, want 0", p.Player.Volume)
	}
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	store, _ := NewStore(path)
	if _, err := store.Load(); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
	// Saving replaces the corrupt file
	if err := store.SaveGuild(Guild{ActiveServerID: "1"}); err != nil {
		t.Fatalf("SaveGuild() error = %v", err)
	}
	if p, err := store.Load(); err != nil || p.Guild.ActiveServerID != "1" {
		t.Errorf("Load() = %+v, %v", p, err)
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, _ := NewStore(path)
	if err := store.SaveGuild(Guild{ActiveServerID: "1"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Prefs, 8)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = store.Watch(ctx, zerolog.Nop(), func(p Prefs) { got <- p })
	}()
	<-ready
	time.Sleep(100 * time.Millisecond)

	other, _ := NewStore(path)
	if err := other.SaveGuild(Guild{ActiveServerID: "2"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-got:
			if p.Guild.ActiveServerID == "2" {
				return
			}
		case <-deadline:
			t.Fatal("Watch() did not report the external change")
		}
	}
}
