package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffcord/internal/core"
	"github.com/tessro/riffcord/internal/tui/styles"
)

// Queue displays the upcoming tracks and tracks a selection for editing.
type Queue struct {
	offset   int
	selected int
}

// NewQueue creates a new Queue component
func NewQueue() *Queue {
	return &Queue{}
}

// SelectNext moves the selection down
func (q *Queue) SelectNext(n int) {
	if q.selected < n-1 {
		q.selected++
	}
}

// SelectPrev moves the selection up
func (q *Queue) SelectPrev() {
	if q.selected > 0 {
		q.selected--
	}
}

// Select sets the selection directly, e.g. to follow a moved track.
func (q *Queue) Select(i int) {
	q.selected = max(i, 0)
}

// Selected returns the selected index
func (q *Queue) Selected() int {
	return q.selected
}

// Render renders the queue panel
func (q *Queue) Render(tracks []core.Track, width, height int, focused bool) string {
	title := styles.PanelTitle(fmt.Sprintf("Up Next (%d)", len(tracks)), focused)

	var content string
	if len(tracks) == 0 {
		content = styles.Muted.Render("Queue is empty")
	} else {
		content = q.renderQueue(tracks, width-4, height-4, focused)
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

func (q *Queue) renderQueue(tracks []core.Track, width, maxLines int, focused bool) string {
	if q.selected >= len(tracks) {
		q.selected = len(tracks) - 1
	}

	// Leave room for the "more" indicator
	visibleCount := max(maxLines-1, 1)

	// Keep the selection on screen
	if q.selected < q.offset {
		q.offset = q.selected
	}
	if q.selected >= q.offset+visibleCount {
		q.offset = q.selected - visibleCount + 1
	}

	start := q.offset
	end := min(start+visibleCount, len(tracks))

	lines := make([]string, 0, end-start+1)

	// Fixed overhead: "XX. " (4) + "▸ " or "  " (2) + " — " (3) = 9 chars
	const overhead = 9

	for i := start; i < end; i++ {
		track := tracks[i]
		num := fmt.Sprintf("%2d.", i+1)
		title, artist := fitTrack(track.DisplayTitle(), Byline(track), width-overhead)

		selector := "  "
		if focused && i == q.selected {
			selector = "▸ "
			title = styles.Highlight.Render(title)
		}

		line := fmt.Sprintf("%s%s %s", selector, styles.Dim.Render(num), title)
		if artist != "" {
			line += " — " + styles.Muted.Render(artist)
		}
		lines = append(lines, line)
	}

	if end < len(tracks) {
		more := styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(tracks)-end))
		lines = append(lines, more)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Byline returns the artist, falling back to the uploader.
func Byline(t core.Track) string {
	if t.Artist != "" {
		return t.Artist
	}
	return t.Uploader
}

// fitTrack truncates title and artist to share available columns, giving
// the artist at least a third.
func fitTrack(title, artist string, available int) (string, string) {
	if len(title)+len(artist) <= available {
		return title, artist
	}
	minArtist := max(available/3, 10)
	if minArtist > available-10 {
		minArtist = available - 10
	}
	artistSpace := min(minArtist, len(artist))
	titleSpace := available - artistSpace
	return truncate(title, titleSpace), truncate(artist, artistSpace)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
