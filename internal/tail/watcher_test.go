package tail

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/tessro/riffcord/internal/core"
)

func tr(name string) core.Track {
	return core.Track{ID: name, Title: name, Artist: "Artist"}
}

func trp(name string) *core.Track {
	t := tr(name)
	return &t
}

func server(current string, playing bool, queue ...string) *core.PlayerState {
	s := &core.PlayerState{IsPlaying: playing, Status: core.StatusConnected, Volume: 50}
	if current != "" {
		s.CurrentTrack = trp(current)
	}
	for _, q := range queue {
		s.Queue = append(s.Queue, tr(q))
	}
	return s
}

func types(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestDiffStates(t *testing.T) {
	completed := &core.PlayerState{
		IsOnDeviceMode:     true,
		DeviceCurrentTrack: trp("A"),
		DeviceQueue:        []core.Track{tr("B")},
		DeviceIsPlaying:    true,
		CurrentTime:        179 * time.Second,
		Duration:           180 * time.Second,
		Status:             core.StatusConnected,
	}
	afterCompleted := &core.PlayerState{
		IsOnDeviceMode:     true,
		DeviceCurrentTrack: trp("B"),
		DeviceIsPlaying:    true,
		Status:             core.StatusConnected,
	}
	muted := server("A", true)
	muted.Volume = 0
	offline := server("A", true)
	offline.Status = core.StatusReconnecting
	device := server("A", true)
	device.IsOnDeviceMode = true

	tests := []struct {
		name string
		prev *core.PlayerState
		curr *core.PlayerState
		want []EventType
	}{
		{"first state with track", nil, server("A", true), []EventType{EventTrackChange}},
		{"first state empty", nil, server("", false), nil},
		{"no change", server("A", true, "B"), server("A", true, "B"), nil},
		{"skip advances queue", server("A", true, "B", "C"), server("B", true, "C"), []EventType{EventTrackSkip}},
		{"unrelated track", server("A", true), server("Z", true), []EventType{EventTrackChange}},
		{"pause", server("A", true), server("A", false), []EventType{EventPause}},
		{"resume", server("A", false), server("A", true), []EventType{EventResume}},
		{"queue append", server("A", true, "B"), server("A", true, "B", "C"), []EventType{EventQueueChange}},
		{"queue reorder", server("A", true, "B", "C"), server("A", true, "C", "B"), []EventType{EventQueueChange}},
		{"device completion", completed, afterCompleted, []EventType{EventTrackComplete}},
		{"volume", server("A", true), muted, []EventType{EventVolumeChange}},
		{"status", server("A", true), offline, []EventType{EventStatusChange}},
		{"mode switch reported alone", server("A", true, "B"), device, []EventType{EventModeChange}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types(diffStates(tt.prev, tt.curr))
			if !slices.Equal(got, tt.want) {
				t.Errorf("diffStates() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeSource struct {
	ch           chan core.PlayerState
	unsubscribed bool
}

func (f *fakeSource) Subscribe() (<-chan core.PlayerState, func()) {
	return f.ch, func() { f.unsubscribed = true }
}

func TestWatcher(t *testing.T) {
	src := &fakeSource{ch: make(chan core.PlayerState, 8)}
	w := NewWatcher(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	ticking := *server("A", true)
	src.ch <- *server("A", false)
	src.ch <- *server("A", true)
	ticking.LastSyncVersion = 9
	src.ch <- ticking
	src.ch <- *server("B", true)
	close(src.ch)

	var got []EventType
	for e := range w.Events() {
		got = append(got, e.Type)
	}
	want := []EventType{EventTrackChange, EventResume, EventTrackChange}
	if !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if err := <-done; err != nil {
		t.Errorf("Start() = %v", err)
	}
	if !src.unsubscribed {
		t.Error("watcher did not unsubscribe")
	}
}

func TestWatcherStop(t *testing.T) {
	src := &fakeSource{ch: make(chan core.PlayerState)}
	w := NewWatcher(src)
	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
