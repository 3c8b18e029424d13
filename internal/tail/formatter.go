package tail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tessro/riffcord/internal/core"
)

// Formatter formats events for output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithTemplate sets a custom format template.
func WithTemplate(tmpl string) FormatterOption {
	return func(f *Formatter) {
		if tmpl != "" {
			t, err := template.New("format").Parse(tmpl)
			if err == nil {
				f.template = t
			}
		}
	}
}

// ParseTemplate checks that tmpl is a valid format template.
func ParseTemplate(tmpl string) error {
	_, err := template.New("format").Parse(tmpl)
	return err
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		showEmoji:     true,
		showTimestamp: false,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a string.
func (f *Formatter) Format(e Event) string {
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

// formatLine formats an event as a simple line.
func (f *Formatter) formatLine(e Event) string {
	var parts []string

	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}
	parts = append(parts, f.eventDescription(e))

	return strings.Join(parts, " ")
}

// formatTemplate formats an event using a custom template.
func (f *Formatter) formatTemplate(e Event) string {
	data := templateData{
		Type:      eventTypeName(e.Type),
		Emoji:     eventEmoji(e.Type),
		Timestamp: e.Timestamp,
		Time:      e.Timestamp.Format("15:04:05"),
	}

	if e.Current != nil {
		track, queue, playing := e.Current.Active()
		if track != nil {
			data.Title = track.DisplayTitle()
			data.Artist = artist(*track)
			data.URL = track.URL
		}
		data.Queue = len(queue)
		data.Playing = playing
		data.Mode = modeName(e.Current.IsOnDeviceMode)
		data.Status = string(e.Current.Status)
		data.Volume = e.Current.Volume
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

type templateData struct {
	Type      string
	Emoji     string
	Timestamp time.Time
	Time      string
	Title     string
	Artist    string
	URL       string
	Queue     int
	Playing   bool
	Mode      string
	Status    string
	Volume    int
}

// eventDescription returns a human-readable description of the event.
func (f *Formatter) eventDescription(e Event) string {
	switch e.Type {
	case EventTrackChange:
		if t := activeTrack(e.Current); t != nil {
			return "Now playing: " + trackLine(*t)
		}
		return "Nothing playing"

	case EventTrackComplete:
		if t := activeTrack(e.Previous); t != nil {
			return "Finished: " + trackLine(*t)
		}
		return "Track completed"

	case EventTrackSkip:
		if t := activeTrack(e.Previous); t != nil {
			return "Skipped: " + trackLine(*t)
		}
		return "Track skipped"

	case EventPause:
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventQueueChange:
		if e.Current != nil {
			_, queue, _ := e.Current.Active()
			return fmt.Sprintf("Queue: %s up next", pluralTracks(len(queue)))
		}
		return "Queue changed"

	case EventVolumeChange:
		if e.Current != nil {
			return fmt.Sprintf("Volume: %d%%", e.Current.Volume)
		}
		return "Volume changed"

	case EventStatusChange:
		if e.Current != nil {
			return "Connection: " + string(e.Current.Status)
		}
		return "Connection changed"

	case EventModeChange:
		if e.Current != nil {
			return fmt.Sprintf("Mode: %s playback", modeName(e.Current.IsOnDeviceMode))
		}
		return "Mode changed"

	default:
		return "Unknown event"
	}
}

func activeTrack(s *core.PlayerState) *core.Track {
	if s == nil {
		return nil
	}
	t, _, _ := s.Active()
	return t
}

func artist(t core.Track) string {
	if t.Artist != "" {
		return t.Artist
	}
	return t.Uploader
}

func trackLine(t core.Track) string {
	if a := artist(t); a != "" {
		return fmt.Sprintf("%s - %s", a, t.DisplayTitle())
	}
	return t.DisplayTitle()
}

func pluralTracks(n int) string {
	if n == 1 {
		return "1 track"
	}
	return humanize.Comma(int64(n)) + " tracks"
}

func modeName(onDevice bool) string {
	if onDevice {
		return "device"
	}
	return "server"
}

// eventEmoji returns an emoji for the event type.
func eventEmoji(t EventType) string {
	switch t {
	case EventTrackChange:
		return "🎵"
	case EventTrackComplete:
		return "✅"
	case EventTrackSkip:
		return "⏭️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventQueueChange:
		return "📜"
	case EventVolumeChange:
		return "🔊"
	case EventStatusChange:
		return "🔌"
	case EventModeChange:
		return "🔀"
	default:
		return "❓"
	}
}

// eventTypeName returns the name of the event type.
func eventTypeName(t EventType) string {
	switch t {
	case EventTrackChange:
		return "track_change"
	case EventTrackComplete:
		return "track_complete"
	case EventTrackSkip:
		return "track_skip"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventQueueChange:
		return "queue_change"
	case EventVolumeChange:
		return "volume_change"
	case EventStatusChange:
		return "status_change"
	case EventModeChange:
		return "mode_change"
	default:
		return "unknown"
	}
}
