package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	rcerrors "github.com/tessro/riffcord/internal/errors"
)

var modeCmd = &cobra.Command{
	Use:   "mode [server|device]",
	Short: "Show or switch the playback mode",
	Long: `Show or switch where the queue plays.

In server mode the bot plays the guild's queue in the voice channel. In
device mode riffcord plays its own queue through this machine's speakers
while the interactive UI is open. A running UI follows the change.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"server", "device"},
	RunE:      runMode,
}

func init() {
	modeCmd.Annotations = localOnly
	rootCmd.AddCommand(modeCmd)
}

func runMode(cmd *cobra.Command, args []string) error {
	store, saved, err := openPrefs()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		switch args[0] {
		case "server":
			saved.Player.IsOnDeviceMode = false
		case "device":
			saved.Player.IsOnDeviceMode = true
		default:
			return rcerrors.WithSuggestion(
				fmt.Errorf("unknown mode %q", args[0]),
				"Use 'server' or 'device'",
			)
		}
		if err := store.SavePlayer(saved.Player); err != nil {
			return fmt.Errorf("failed to save mode: %w", err)
		}
	}

	mode := modeName(saved.Player.IsOnDeviceMode)
	if JSONOutput() {
		printJSON(map[string]string{"mode": mode})
		return nil
	}
	if saved.Player.IsOnDeviceMode {
		fmt.Println("🎧 Device playback")
	} else {
		fmt.Println("🤖 Server playback")
	}
	return nil
}

func modeName(onDevice bool) string {
	if onDevice {
		return "device"
	}
	return "server"
}
