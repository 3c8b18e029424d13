package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/tui"
)

var tuiRefresh int

var tuiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Launch interactive dashboard",
	Long: `Launch the interactive terminal dashboard.

The dashboard provides a live view with:
  • Now Playing - current track, progress, mode and connection
  • Queue - upcoming tracks
  • Voice - the server's voice channels and where the bot is
  • History - recently played tracks

On-device mode plays the queue through this machine while the dashboard
is open.

Keyboard shortcuts:
  q, Ctrl+C    Quit
  ?            Help
  /            Search
  s            Select server
  Space        Play/Pause
  n            Next track
  m            Switch server/device mode
  +/-          Volume up/down (device mode)
  Tab          Switch panel`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&tuiRefresh, "refresh", 0, "Refresh interval in milliseconds (default from config)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer cancel()

	// Console logging would draw over the dashboard.
	if cfg.Log.File == "" {
		logger = zerolog.Nop()
	}

	notes := tui.NewNotifier()
	c, err := newClient(clientOptions{interactive: true, notes: notes})
	if err != nil {
		return err
	}
	defer c.close()

	c.start(ctx)
	c.follow(ctx)
	go func() {
		if err := c.guild.AutoConnect(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("auto-connect failed")
		}
	}()

	refresh := tuiRefresh
	if refresh <= 0 {
		refresh = cfg.TUI.RefreshInterval
	}

	return tui.Run(ctx, &tui.App{
		Player:      c.player,
		Guild:       c.guild,
		Search:      c.backend,
		Notes:       notes,
		RefreshRate: time.Duration(refresh) * time.Millisecond,
	})
}
