package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/core"
	"github.com/tessro/riffcord/internal/tail"
)

var (
	tailNoEmoji   bool
	tailTimestamp bool
	tailFormat    string
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow playback changes in real-time",
	Long: `Watch the active server's playback and print changes as they happen.

Events tracked:
  - Track changes (new song started)
  - Track skips (song skipped for the head of the queue)
  - Pause/Resume
  - Queue changes
  - Connection changes

Selecting another server with 'riffcord servers use' switches the stream.

Templates receive .Type .Emoji .Time .Title .Artist .URL .Queue .Playing
.Mode .Status and .Volume, for example:
  riffcord tail -f '{{.Time}} {{.Type}} {{.Title}}'`,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVar(&tailNoEmoji, "no-emoji", false, "disable emoji output")
	tailCmd.Flags().BoolVarP(&tailTimestamp, "timestamp", "t", false, "show timestamps")
	tailCmd.Flags().StringVarP(&tailFormat, "format", "f", "", "custom format template")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	if tailFormat != "" {
		if err := tail.ParseTemplate(tailFormat); err != nil {
			return fmt.Errorf("invalid format template: %w", err)
		}
	}

	emoji := cfg.Tail.Emoji
	if cmd.Flags().Changed("no-emoji") {
		emoji = !tailNoEmoji
	}
	formatter := tail.NewFormatter(
		tail.WithEmoji(emoji),
		tail.WithTimestamp(tailTimestamp || cfg.Tail.Timestamp),
		tail.WithTemplate(tailFormat),
	)

	// Handle Ctrl+C gracefully
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := newClient(clientOptions{})
	if err != nil {
		return err
	}
	defer c.close()

	c.start(ctx)
	c.follow(ctx)

	showHistory(c.awaitSync(ctx), emoji)

	watcher := tail.NewWatcher(c.player)

	errCh := make(chan error, 1)
	go func() {
		errCh <- watcher.Start(ctx)
	}()

	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			fmt.Println(formatter.Format(event))

		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// showHistory prints recently played tracks. The watcher
// reports the current song itself.
func showHistory(st core.PlayerState, emoji bool) {
	for _, item := range st.History {
		prefix := ""
		if emoji {
			prefix = "⏪ "
		}
		fmt.Fprintf(os.Stdout, "%s%s\n", prefix, trackLine(item.Track))
	}
}
