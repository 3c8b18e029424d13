package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffcord/internal/core"
	"github.com/tessro/riffcord/internal/tui/styles"
)

// NowPlaying displays the current track of the active playback mode
type NowPlaying struct{}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel
func (n *NowPlaying) Render(state *core.PlayerState, width, height int, focused bool) string {
	title := styles.PanelTitle("Now Playing", focused)

	var content string
	if state == nil || !state.HasTrack() {
		content = styles.Muted.Render("No track playing")
		if state != nil {
			content = lipgloss.JoinVertical(lipgloss.Left, content, "", n.renderFooter(state))
		}
	} else {
		content = n.renderTrack(state, width-4)
	}

	panel := styles.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (n *NowPlaying) renderTrack(state *core.PlayerState, width int) string {
	track, _, playing := state.Active()

	icon := styles.StatusIcon(playing)
	titleStyle := styles.Title.Width(max(width-4, 1))
	title := titleStyle.Render(track.DisplayTitle())

	artist := styles.Subtitle.Render(Byline(*track))
	link := styles.Dim.Render(truncate(track.URL, width-2))

	lines := []string{icon + " " + title, "  " + artist, "  " + link, ""}

	// Local playback reports position; the bot does not.
	if state.IsOnDeviceMode {
		progressWidth := max(width-14, 10)
		bar := styles.ProgressBar(state.ProgressPercent(), progressWidth)
		total := state.Duration
		if total == 0 {
			total = track.Duration
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", formatDuration(state.CurrentTime), bar, formatDuration(total)), "")
	} else if track.Duration > 0 {
		lines = append(lines, styles.Dim.Render("  "+formatDuration(track.Duration)), "")
	}

	lines = append(lines, n.renderFooter(state), n.renderControls(playing))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (n *NowPlaying) renderFooter(state *core.PlayerState) string {
	mode := "server"
	if state.IsOnDeviceMode {
		mode = fmt.Sprintf("on-device 🔊 %d%%", state.Volume)
	}
	info := fmt.Sprintf("%s %s  %s %s",
		styles.ModeIcon(state.IsOnDeviceMode), mode,
		styles.ConnectionIcon(string(state.Status)), state.Status)
	if state.HasPendingOperation {
		info += "  …"
	}
	return styles.Muted.Render(info)
}

func (n *NowPlaying) renderControls(playing bool) string {
	controls := styles.Dim.Render("⏮ ")
	if playing {
		controls += styles.Playing.Render("⏸")
	} else {
		controls += styles.Paused.Render("▶")
	}
	controls += styles.Dim.Render(" ⏭")

	return lipgloss.NewStyle().
		Align(lipgloss.Center).
		Render(controls)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
