package wizard

import (
	"os"

	"golang.org/x/term"

	"github.com/tessro/riffcord/internal/core"
)

// Interactive provides interactive fallback functionality.
type Interactive struct {
	enabled    bool
	searchFunc SearchFunc
}

// NewInteractive creates a new interactive handler.
func NewInteractive() *Interactive {
	return &Interactive{
		enabled: true,
	}
}

// SetEnabled enables or disables interactive mode.
func (i *Interactive) SetEnabled(enabled bool) {
	i.enabled = enabled
}

// SetSearchFunc sets the search function for the search wizard.
func (i *Interactive) SetSearchFunc(fn SearchFunc) {
	i.searchFunc = fn
}

// IsTerminal returns true if stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// CanInteract returns true if interactive mode is available.
func (i *Interactive) CanInteract() bool {
	return i.enabled && IsTerminal()
}

// PromptSearch launches the search wizard if interactive mode is available.
// Returns the selected track, or nil if cancelled or not interactive.
func (i *Interactive) PromptSearch() (*core.Track, error) {
	if !i.CanInteract() || i.searchFunc == nil {
		return nil, nil
	}
	return RunSearch(i.searchFunc)
}

// PromptServer launches the server picker if interactive mode is available.
// Returns the chosen server id, or "" if cancelled or not interactive.
func (i *Interactive) PromptServer(servers []core.Server, activeID string) (string, error) {
	if !i.CanInteract() || len(servers) == 0 {
		return "", nil
	}
	item, err := RunPicker("🎧 Select Server", "The bot is not in any of your servers.", ServerItems(servers, activeID))
	if err != nil || item == nil {
		return "", err
	}
	return item.ID, nil
}

// PromptChannel launches the voice channel picker if interactive mode is
// available. Returns the chosen channel id, or "" if cancelled or not
// interactive.
func (i *Interactive) PromptChannel(channels []core.VoiceChannel, botChannelID string) (string, error) {
	if !i.CanInteract() || len(channels) == 0 {
		return "", nil
	}
	item, err := RunPicker("🔈 Select Voice Channel", "This server has no voice channels.", ChannelItems(channels, botChannelID))
	if err != nil || item == nil {
		return "", err
	}
	return item.ID, nil
}

// NeedsTrack returns true if a track argument is required but missing.
func NeedsTrack(args []string) bool {
	return len(args) == 0
}

// SoleServer returns the only server in the list, so callers can skip
// prompting.
func SoleServer(servers []core.Server) *core.Server {
	if len(servers) == 1 {
		return &servers[0]
	}
	return nil
}
