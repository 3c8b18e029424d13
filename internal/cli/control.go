package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

var playCmd = &cobra.Command{
	Use:     "play [query|url]",
	Aliases: []string{"resume"},
	Short:   "Resume playback or queue a track",
	Long: `Without arguments, resume the bot's playback in the active server.
With a query or URL, queue that track; it starts at once when nothing is
playing.

Examples:
  riffcord play                      # Resume playback
  riffcord play "bohemian rhapsody"  # Search and queue a track`,
	RunE: runPlay,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Long:  `Pause the bot's playback in the active server.`,
	RunE:  runPause,
}

var skipCmd = &cobra.Command{
	Use:     "skip",
	Aliases: []string{"next"},
	Short:   "Skip to next track",
	Long:    `Skip the current track; the head of the queue starts playing.`,
	RunE:    runSkip,
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track",
	Long:  `Go back to the previous track. The bot does not support this yet.`,
	RunE:  runPrev,
}

var (
	volumeUp   bool
	volumeDown bool
)

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Set or adjust on-device volume",
	Long: `Set the on-device playback volume (0-100) or adjust it up/down.
The volume is remembered and applied the next time on-device mode plays.

Examples:
  riffcord volume 50      # Set volume to 50%
  riffcord volume --up    # Increase volume by 10%
  riffcord volume --down  # Decrease volume by 10%`,
	RunE: runVolume,
}

func init() {
	volumeCmd.Annotations = localOnly
	volumeCmd.Flags().BoolVar(&volumeUp, "up", false, "Increase volume by 10%")
	volumeCmd.Flags().BoolVar(&volumeDown, "down", false, "Decrease volume by 10%")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(volumeCmd)
}

// control runs op against the synced player and reports the settled state.
func control(cmd *cobra.Command, op func(core.Controller, context.Context) error, status, line string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client) error {
		c.awaitSync(ctx)
		if err := op(c.player, ctx); err != nil {
			return err
		}
		st := c.awaitSettled(ctx)

		if JSONOutput() {
			out := map[string]any{"status": status}
			if t, _, _ := st.Active(); t != nil {
				out["track"] = trackJSON(*t)
			}
			printJSON(out)
		} else {
			fmt.Println(line)
		}
		return nil
	})
}

func runPlay(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return runQueueAdd(cmd, args)
	}
	return control(cmd, core.Controller.Play, "playing", "▶ Resumed")
}

func runPause(cmd *cobra.Command, args []string) error {
	return control(cmd, core.Controller.Pause, "paused", "⏸ Paused")
}

func runSkip(cmd *cobra.Command, args []string) error {
	return control(cmd, core.Controller.Skip, "skipped", "⏭ Skipped")
}

func runPrev(cmd *cobra.Command, args []string) error {
	return control(cmd, core.Controller.Previous, "unchanged", "⏮ Previous track is not supported by the bot")
}

func runVolume(cmd *cobra.Command, args []string) error {
	store, saved, err := openPrefs()
	if err != nil {
		return err
	}

	current := saved.Player.Volume
	var level int
	switch {
	case volumeUp:
		level = min(current+10, 100)
	case volumeDown:
		level = max(current-10, 0)
	case len(args) > 0:
		level, err = strconv.Atoi(args[0])
		if err != nil || level < 0 || level > 100 {
			return rcerrors.WithSuggestion(
				fmt.Errorf("invalid volume %q", args[0]),
				"Volume must be a number between 0 and 100",
			)
		}
	default:
		if JSONOutput() {
			printJSON(map[string]int{"volume": current})
		} else {
			fmt.Printf("🔊 %d%%\n", current)
		}
		return nil
	}

	saved.Player.Volume = level
	if err := store.SavePlayer(saved.Player); err != nil {
		return fmt.Errorf("failed to save volume: %w", err)
	}

	if JSONOutput() {
		printJSON(map[string]int{"volume": level})
	} else {
		fmt.Printf("🔊 Volume set to %d%%\n", level)
	}
	return nil
}

func trackJSON(t core.Track) map[string]any {
	return map[string]any{
		"id":       t.ID,
		"title":    t.Title,
		"artist":   t.Artist,
		"url":      t.URL,
		"duration": t.Duration.String(),
	}
}
