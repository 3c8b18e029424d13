package wizard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/riffcord/internal/core"
)

// Item is one choice in a picker.
type Item struct {
	ID     string
	Label  string
	Detail string
	Active bool
}

// ServerItems converts servers to picker items, marking the active one.
func ServerItems(servers []core.Server, activeID string) []Item {
	items := make([]Item, 0, len(servers))
	for _, s := range servers {
		detail := ""
		if s.Owner {
			detail = "owner"
		}
		items = append(items, Item{ID: s.ID, Label: s.Name, Detail: detail, Active: s.ID == activeID})
	}
	return items
}

// ChannelItems converts voice channels to picker items, marking the one the
// bot is in.
func ChannelItems(channels []core.VoiceChannel, botChannelID string) []Item {
	items := make([]Item, 0, len(channels))
	for _, c := range channels {
		items = append(items, Item{ID: c.ID, Label: c.Name, Active: c.ID == botChannelID})
	}
	return items
}

// PickerModel is the bubbletea model for a single-choice list.
type PickerModel struct {
	title    string
	empty    string
	items    []Item
	cursor   int
	selected *Item
	width    int
	height   int
}

// Styles for the picker
var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#5865F2"))

	pickerItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	pickerSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Background(lipgloss.Color("237"))

	pickerActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	pickerInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))
)

// NewPickerModel creates a new picker model. empty is shown when there is
// nothing to choose.
func NewPickerModel(title, empty string, items []Item) PickerModel {
	m := PickerModel{
		title:  title,
		empty:  empty,
		items:  items,
		width:  80,
		height: 20,
	}
	// Start on the active item
	for i, it := range items {
		if it.Active {
			m.cursor = i
			break
		}
	}
	return m
}

// Init initializes the model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit

		case "enter", " ":
			if len(m.items) > 0 && m.cursor < len(m.items) {
				m.selected = &m.items[m.cursor]
				return m, tea.Quit
			}

		case "up", "k", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j", "ctrl+n":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = max(len(m.items)-1, 0)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// View renders the model.
func (m PickerModel) View() string {
	var b strings.Builder

	b.WriteString(pickerTitleStyle.Render(m.title))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(pickerInactiveStyle.Render(m.empty))
		b.WriteString("\n")
	} else {
		for i, it := range m.items {
			var line strings.Builder
			if it.Active {
				line.WriteString(pickerActiveStyle.Render("● "))
			} else {
				line.WriteString(pickerInactiveStyle.Render("○ "))
			}
			line.WriteString(it.Label)
			if it.Detail != "" {
				line.WriteString(" " + pickerInactiveStyle.Render("("+it.Detail+")"))
			}

			if i == m.cursor {
				b.WriteString(pickerSelectedStyle.Render("▸ " + line.String()))
			} else {
				b.WriteString(pickerItemStyle.Render("  " + line.String()))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(pickerInactiveStyle.Render("↑/↓ navigate • enter select • esc quit"))

	return b.String()
}

// Selected returns the selected item, or nil if none.
func (m PickerModel) Selected() *Item {
	return m.selected
}

// RunPicker runs a picker and returns the selected item.
func RunPicker(title, empty string, items []Item) (*Item, error) {
	model := NewPickerModel(title, empty, items)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(PickerModel).Selected(), nil
}
