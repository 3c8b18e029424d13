package player

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
	"github.com/tessro/riffcord/internal/notify"
	"github.com/tessro/riffcord/internal/prefs"
)

type fakeAudio struct {
	mu      sync.Mutex
	played  []string
	pauses  int
	stops   int
	volume  int
	seekTo  time.Duration
	playErr error
	pos     time.Duration
	length  time.Duration
	onEnded func()
}

func (f *fakeAudio) Play(_ context.Context, t core.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, t.Title)
	return nil
}

func (f *fakeAudio) Pause() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func (f *fakeAudio) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeAudio) Seek(d time.Duration) error {
	f.mu.Lock()
	f.seekTo = d
	f.mu.Unlock()
	return nil
}

func (f *fakeAudio) SetVolume(v int) {
	f.mu.Lock()
	f.volume = v
	f.mu.Unlock()
}

func (f *fakeAudio) Progress() (time.Duration, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, f.length
}

func (f *fakeAudio) OnEnded(fn func()) {
	f.mu.Lock()
	f.onEnded = fn
	f.mu.Unlock()
}

func (f *fakeAudio) playedTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.played)
}

func onDevice(o *Options) {
	o.Initial = prefs.Player{Volume: 50, IsOnDeviceMode: true}
}

func (h *harness) deviceSeed(current *core.Track, queue ...string) {
	h.player.mu.Lock()
	h.player.state.DeviceCurrentTrack = current
	h.player.state.DeviceQueue = tracks(queue...)
	h.player.mu.Unlock()
}

// Scenario C: skipping with a queue promotes its head.
func TestDeviceSkip(t *testing.T) {
	h := newHarness(t, onDevice)
	h.deviceSeed(nil, "T1", "T2")

	if err := h.player.Skip(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := h.player.State()
	if title(st.DeviceCurrentTrack) != "T1" || !slices.Equal(titles(st.DeviceQueue), []string{"T2"}) {
		t.Errorf("after skip: current=%s queue=%v", title(st.DeviceCurrentTrack), titles(st.DeviceQueue))
	}

	_ = h.player.Skip(context.Background())
	_ = h.player.Skip(context.Background())
	st = h.player.State()
	if st.DeviceCurrentTrack != nil || len(st.DeviceQueue) != 0 || st.DeviceIsPlaying {
		t.Errorf("skip past the end: current=%s queue=%v playing=%v", title(st.DeviceCurrentTrack), titles(st.DeviceQueue), st.DeviceIsPlaying)
	}
	if len(h.backend.calls) != 0 {
		t.Error("on-device skip reached the backend")
	}
}

func TestDeviceSkipKeepsPlaying(t *testing.T) {
	h := newHarness(t, onDevice)
	h.deviceSeed(nil, "T1", "T2")

	if err := h.player.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := h.player.Skip(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := h.audio.playedTitles(); !slices.Equal(got, []string{"T1", "T2"}) {
		t.Errorf("played = %v, want [T1 T2]", got)
	}
	if !h.player.State().DeviceIsPlaying {
		t.Error("playback stopped after skip")
	}
}

func TestDeviceTrackEndAdvances(t *testing.T) {
	h := newHarness(t, onDevice)
	h.deviceSeed(nil, "T1", "T2")
	_ = h.player.Play(context.Background())

	h.audio.mu.Lock()
	ended := h.audio.onEnded
	h.audio.mu.Unlock()
	ended()

	st := h.player.State()
	if title(st.DeviceCurrentTrack) != "T2" || !st.DeviceIsPlaying {
		t.Errorf("after end: current=%s playing=%v", title(st.DeviceCurrentTrack), st.DeviceIsPlaying)
	}
}

func TestDevicePlayBlocked(t *testing.T) {
	h := newHarness(t, onDevice)
	a := track("A")
	h.deviceSeed(&a)
	h.audio.playErr = fmt.Errorf("%w: no device", rcerrors.ErrPlaybackBlocked)

	err := h.player.Play(context.Background())
	if !errors.Is(err, rcerrors.ErrPlaybackBlocked) {
		t.Fatalf("Play() error = %v, want ErrPlaybackBlocked", err)
	}
	var aerr *rcerrors.ActionError
	if errors.As(err, &aerr) {
		t.Error("blocked output reported as a generic playback failure")
	}
	msg, _ := h.notes.Last()
	if msg.Level != notify.LevelError || msg.Text == `Failed to play "A"` {
		t.Errorf("notification = %+v, want the blocked-output message", msg)
	}
	if h.player.State().DeviceIsPlaying {
		t.Error("DeviceIsPlaying set after a blocked play")
	}
}

func TestDevicePlayFailure(t *testing.T) {
	h := newHarness(t, onDevice)
	a := track("A")
	h.deviceSeed(&a)
	h.audio.playErr = errBoom

	err := h.player.Play(context.Background())
	var aerr *rcerrors.ActionError
	if !errors.As(err, &aerr) || aerr.Message() != `Failed to play "A"` {
		t.Errorf("Play() error = %v", err)
	}
}

func TestDeviceQueueEdits(t *testing.T) {
	h := newHarness(t, onDevice, func(o *Options) {
		o.User = func() *core.User { return nil }
	})
	ctx := context.Background()

	// No identity is needed locally.
	for _, n := range []string{"A", "B", "C", "D"} {
		if err := h.player.AddToQueue(ctx, track(n)); err != nil {
			t.Fatalf("AddToQueue(%s) error = %v", n, err)
		}
	}
	st := h.player.State()
	if title(st.DeviceCurrentTrack) != "A" || !st.PlayerVisible {
		t.Errorf("first add: current=%s visible=%v", title(st.DeviceCurrentTrack), st.PlayerVisible)
	}

	if err := h.player.ReorderQueue(ctx, 0, 2); err != nil {
		t.Fatal(err)
	}
	if got := titles(h.player.State().DeviceQueue); !slices.Equal(got, []string{"C", "D", "B"}) {
		t.Errorf("after reorder = %v, want [C D B]", got)
	}

	if err := h.player.RemoveFromQueue(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if got := titles(h.player.State().DeviceQueue); !slices.Equal(got, []string{"C", "B"}) {
		t.Errorf("after remove = %v, want [C B]", got)
	}

	if err := h.player.RemoveFromQueue(ctx, 7); !errors.Is(err, rcerrors.ErrIndexOutOfRange) {
		t.Errorf("RemoveFromQueue(7) error = %v", err)
	}
	if len(h.backend.calls) != 0 || h.player.State().HasPendingOperation {
		t.Error("on-device edits used the server protocol")
	}
	if len(h.player.State().Queue) != 0 {
		t.Error("on-device edits touched the server queue")
	}
}

func TestModeIsolation(t *testing.T) {
	h := newHarness(t)
	h.seed("S", "S1", "S2")

	h.player.SetOnDeviceMode(true)
	st := h.player.State()
	if title(st.CurrentTrack) != "S" || !slices.Equal(titles(st.Queue), []string{"S1", "S2"}) {
		t.Errorf("entering device mode touched server state: %s %v", title(st.CurrentTrack), titles(st.Queue))
	}
	if st.PlayerVisible {
		t.Error("player visible after switching mode")
	}
	if cur, _, _ := st.Active(); cur != nil {
		t.Error("server track shown in device mode")
	}

	_ = h.player.AddToQueue(context.Background(), track("D1"))
	_ = h.player.AddToQueue(context.Background(), track("D2"))
	_ = h.player.Play(context.Background())

	h.player.SetOnDeviceMode(false)
	st = h.player.State()
	if st.DeviceCurrentTrack != nil || len(st.DeviceQueue) != 0 || st.DeviceIsPlaying {
		t.Errorf("device state survived: %s %v %v", title(st.DeviceCurrentTrack), titles(st.DeviceQueue), st.DeviceIsPlaying)
	}
	if st.PlayerVisible {
		t.Error("player view still visible")
	}
	h.audio.mu.Lock()
	stops := h.audio.stops
	h.audio.mu.Unlock()
	if stops == 0 {
		t.Error("audio not stopped when leaving device mode")
	}

	msgs := h.notes.Messages()
	if len(msgs) != 2 || msgs[0].Text != "Switched to on-device playback" || msgs[1].Text != "Switched to server playback" {
		t.Errorf("notifications = %+v", msgs)
	}
	h.prefs.mu.Lock()
	saved := slices.Clone(h.prefs.saved)
	h.prefs.mu.Unlock()
	if len(saved) != 2 || !saved[0].IsOnDeviceMode || saved[1].IsOnDeviceMode {
		t.Errorf("saved prefs = %+v", saved)
	}
}

func TestSetOnDeviceModeSameValueIsNoop(t *testing.T) {
	h := newHarness(t)
	h.player.SetOnDeviceMode(false)
	if len(h.notes.Messages()) != 0 {
		t.Error("no-op mode change notified")
	}
}

func TestSetVolume(t *testing.T) {
	h := newHarness(t)
	h.player.SetVolume(130)
	if got := h.player.State().Volume; got != 100 {
		t.Errorf("Volume = %d, want 100", got)
	}
	h.audio.mu.Lock()
	v := h.audio.volume
	h.audio.mu.Unlock()
	if v != 100 {
		t.Errorf("audio volume = %d, want 100", v)
	}
	h.prefs.mu.Lock()
	last := h.prefs.saved[len(h.prefs.saved)-1]
	h.prefs.mu.Unlock()
	if last.Volume != 100 {
		t.Errorf("saved volume = %d", last.Volume)
	}
}

func TestSeek(t *testing.T) {
	h := newHarness(t)
	if err := h.player.Seek(context.Background(), time.Second); !errors.Is(err, ErrNotOnDevice) {
		t.Errorf("Seek() in server mode error = %v", err)
	}

	h.player.SetOnDeviceMode(true)
	a := track("A")
	h.deviceSeed(&a)
	if err := h.player.Seek(context.Background(), 42*time.Second); err != nil {
		t.Fatal(err)
	}
	if got := h.player.State().CurrentTime; got != 42*time.Second {
		t.Errorf("CurrentTime = %v", got)
	}
}

func TestProgressSampling(t *testing.T) {
	h := newHarness(t, onDevice, func(o *Options) {
		o.ProgressInterval = 5 * time.Millisecond
	})
	a := track("A")
	h.deviceSeed(&a)
	_ = h.player.Play(context.Background())

	h.audio.mu.Lock()
	h.audio.pos, h.audio.length = 30*time.Second, 3*time.Minute
	h.audio.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		st := h.player.State()
		if st.CurrentTime == 30*time.Second && st.Duration == 3*time.Minute {
			if pct := st.ProgressPercent(); pct < 16 || pct > 17 {
				t.Errorf("ProgressPercent() = %v", pct)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("progress never sampled")
}
