package tail

import (
	"strings"
	"testing"
	"time"

	"github.com/tessro/riffcord/internal/core"
)

func TestFormatLine(t *testing.T) {
	at := time.Date(2024, 5, 1, 21, 4, 5, 0, time.UTC)
	queued := server("A", true, "B", "C")
	device := server("", false)
	device.IsOnDeviceMode = true

	tests := []struct {
		name string
		opts []FormatterOption
		e    Event
		want string
	}{
		{
			name: "track change",
			opts: []FormatterOption{WithEmoji(false)},
			e:    Event{Type: EventTrackChange, Current: server("A", true)},
			want: "Now playing: Artist - A",
		},
		{
			name: "emoji and timestamp",
			opts: []FormatterOption{WithTimestamp(true)},
			e:    Event{Type: EventPause, Timestamp: at, Current: server("A", false)},
			want: "21:04:05 ⏸️ Paused",
		},
		{
			name: "skip names previous track",
			opts: []FormatterOption{WithEmoji(false)},
			e:    Event{Type: EventTrackSkip, Previous: server("A", true, "B"), Current: server("B", true)},
			want: "Skipped: Artist - A",
		},
		{
			name: "queue",
			opts: []FormatterOption{WithEmoji(false)},
			e:    Event{Type: EventQueueChange, Current: queued},
			want: "Queue: 2 tracks up next",
		},
		{
			name: "mode",
			opts: []FormatterOption{WithEmoji(false)},
			e:    Event{Type: EventModeChange, Current: device},
			want: "Mode: device playback",
		},
		{
			name: "untitled track falls back to url",
			opts: []FormatterOption{WithEmoji(false)},
			e: Event{Type: EventTrackChange, Current: &core.PlayerState{
				CurrentTrack: &core.Track{URL: "https://example.com/x"},
			}},
			want: "Now playing: https://example.com/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewFormatter(tt.opts...).Format(tt.e); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTemplate(t *testing.T) {
	f := NewFormatter(WithTemplate("{{.Type}}|{{.Title}}|{{.Queue}}|{{.Mode}}|{{.Status}}"))
	got := f.Format(Event{Type: EventResume, Current: server("A", true, "B")})
	if got != "resume|A|1|server|connected" {
		t.Errorf("Format() = %q", got)
	}

	// Invalid templates are ignored.
	f = NewFormatter(WithEmoji(false), WithTemplate("{{.Nope"))
	if got := f.Format(Event{Type: EventResume}); got != "Resumed" {
		t.Errorf("Format() = %q", got)
	}
	if err := ParseTemplate("{{.Nope"); err == nil {
		t.Error("ParseTemplate() accepted a broken template")
	}

	// Execution errors fall back to the plain line.
	f = NewFormatter(WithEmoji(false), WithTemplate("{{.Missing.Field}}"))
	if got := f.Format(Event{Type: EventPause}); !strings.Contains(got, "Paused") {
		t.Errorf("Format() = %q", got)
	}
}
