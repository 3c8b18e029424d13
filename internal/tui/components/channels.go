package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffcord/internal/core"
	"github.com/tessro/riffcord/internal/tui/styles"
)

// Channels displays the voice channels of the active server
type Channels struct {
	selected int
}

// NewChannels creates a new Channels component
func NewChannels() *Channels {
	return &Channels{}
}

// SelectNext selects the next channel
func (c *Channels) SelectNext(n int) {
	if c.selected < n-1 {
		c.selected++
	}
}

// SelectPrev selects the previous channel
func (c *Channels) SelectPrev() {
	if c.selected > 0 {
		c.selected--
	}
}

// Selected returns the selected channel index
func (c *Channels) Selected() int {
	return c.selected
}

// Render renders the voice channel panel
func (c *Channels) Render(state *core.GuildState, serverName string, width, height int, focused bool) string {
	label := "Voice"
	if serverName != "" {
		label = "Voice · " + serverName
	}
	title := styles.PanelTitle(label, focused)

	var content string
	switch {
	case state == nil || state.ActiveServerID == "":
		content = styles.Muted.Render("No server selected")
	case state.Loading && len(state.VoiceChannels) == 0:
		content = styles.Muted.Render("Loading...")
	case state.Err != "" && len(state.VoiceChannels) == 0:
		content = styles.Failure.Render(state.Err)
	case len(state.VoiceChannels) == 0:
		content = styles.Muted.Render("No voice channels")
	default:
		content = c.renderChannels(state, width-4, height-4, focused)
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

func (c *Channels) renderChannels(state *core.GuildState, width, maxLines int, focused bool) string {
	channels := state.VoiceChannels
	if c.selected >= len(channels) {
		c.selected = len(channels) - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}

	lines := make([]string, 0, len(channels))
	for i, ch := range channels {
		selector := "  "
		if focused && i == c.selected {
			selector = "▸ "
		}

		bot := ""
		if state.IsBotConnected && state.BotChannelID == ch.ID {
			bot = styles.Playing.Render(" ● bot")
		}

		name := truncate(ch.Name, width-10)
		if focused && i == c.selected {
			name = styles.Highlight.Render(name)
		}

		lines = append(lines, fmt.Sprintf("%s🔈 %s%s", selector, name, bot))
		if len(lines) >= maxLines {
			break
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
