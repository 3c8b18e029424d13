package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
	"github.com/tessro/riffcord/internal/wizard"
)

var (
	queueLimit   int
	queueHistory bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the playback queue",
	Long:  `View and manage the active server's queue.`,
	RunE:  runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add [query|url]",
	Short: "Add a track to the queue",
	Long: `Add a track by URL, or search for one and add the best match.
Without arguments an interactive search opens.

Examples:
  riffcord queue add "bohemian rhapsody"
  riffcord queue add https://www.youtube.com/watch?v=fJ9rUzIMcZQ`,
	RunE: runQueueAdd,
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <position>",
	Short: "Remove a track from the queue",
	Long:  `Remove the track at the given position (as shown by 'riffcord queue').`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRemove,
}

var queueMoveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move a track in the queue",
	Long:  `Move a track from one position to another.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runQueueMove,
}

func init() {
	queueCmd.Flags().IntVarP(&queueLimit, "limit", "l", 20, "Maximum number of tracks to show")
	queueCmd.Flags().BoolVar(&queueHistory, "history", false, "Show recently played tracks")

	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueRemoveCmd)
	queueCmd.AddCommand(queueMoveCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client) error {
		st := c.awaitSync(ctx)
		if c.guild.ActiveServerID() == "" {
			return rcerrors.ErrNoActiveServer
		}

		current, queue, playing := st.Active()
		tracks := queue
		if queueLimit > 0 && len(tracks) > queueLimit {
			tracks = tracks[:queueLimit]
		}

		if JSONOutput() {
			output := make([]map[string]any, len(tracks))
			for i, t := range tracks {
				item := trackJSON(t)
				item["position"] = i + 1
				output[i] = item
			}
			result := map[string]any{
				"queue":      output,
				"total":      len(queue),
				"is_playing": playing,
			}
			if current != nil {
				result["current"] = trackJSON(*current)
			}
			if queueHistory {
				result["history"] = historyJSON(st.History)
			}
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		if queueHistory && len(st.History) > 0 {
			fmt.Println("Recently played:")
			for _, item := range st.History {
				fmt.Printf("  ⏪ %s\n", trackLine(item.Track))
			}
			fmt.Println()
		}

		if current == nil && len(queue) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}

		if current != nil {
			icon := "▶"
			if !playing {
				icon = "⏸"
			}
			fmt.Printf("%s %s\n\n", icon, trackLine(*current))
		}

		if len(queue) == 0 {
			fmt.Println("Nothing up next")
			return nil
		}

		fmt.Println("Up next:")
		for i, t := range tracks {
			fmt.Printf("  %d. %s\n", i+1, trackLine(t))
		}
		if len(queue) > len(tracks) {
			fmt.Printf("\n... and %d more tracks\n", len(queue)-len(tracks))
		}
		return nil
	})
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client) error {
		return addTrack(ctx, c, args)
	})
}

// addTrack resolves args to a track and queues it. A URL is queued as-is;
// anything else is searched.
func addTrack(ctx context.Context, c *client, args []string) error {
	track, err := resolveTrack(ctx, c, args)
	if err != nil {
		return err
	}
	if track == nil {
		return nil
	}

	c.awaitSync(ctx)
	if err := c.player.AddToQueue(ctx, *track); err != nil {
		return err
	}
	c.awaitSettled(ctx)

	if JSONOutput() {
		printJSON(map[string]any{
			"status": "queued",
			"track":  trackJSON(*track),
		})
	} else {
		fmt.Printf("➕ Queued %s\n", trackLine(*track))
	}
	return nil
}

func resolveTrack(ctx context.Context, c *client, args []string) (*core.Track, error) {
	if wizard.NeedsTrack(args) {
		interactive := wizard.NewInteractive()
		interactive.SetEnabled(!JSONOutput())
		interactive.SetSearchFunc(func(query string) ([]core.Track, error) {
			return c.backend.Search(ctx, query)
		})
		if !interactive.CanInteract() {
			return nil, fmt.Errorf("a search query or track URL is required")
		}
		return interactive.PromptSearch()
	}

	query := strings.Join(args, " ")
	if isTrackURL(query) {
		return &core.Track{URL: query}, nil
	}

	results, err := c.backend.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %q", query)
	}
	return &results[0], nil
}

func isTrackURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func runQueueRemove(cmd *cobra.Command, args []string) error {
	pos, err := parsePosition(args[0])
	if err != nil {
		return err
	}

	return withClient(cmd.Context(), func(ctx context.Context, c *client) error {
		c.awaitSync(ctx)
		if err := c.player.RemoveFromQueue(ctx, pos); err != nil {
			return err
		}
		c.awaitSettled(ctx)

		if JSONOutput() {
			printJSON(map[string]any{"status": "removed", "position": pos + 1})
		} else {
			fmt.Printf("➖ Removed track %d\n", pos+1)
		}
		return nil
	})
}

func runQueueMove(cmd *cobra.Command, args []string) error {
	from, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	to, err := parsePosition(args[1])
	if err != nil {
		return err
	}

	return withClient(cmd.Context(), func(ctx context.Context, c *client) error {
		c.awaitSync(ctx)
		if err := c.player.ReorderQueue(ctx, from, to); err != nil {
			return err
		}
		c.awaitSettled(ctx)

		if JSONOutput() {
			printJSON(map[string]any{"status": "moved", "from": from + 1, "to": to + 1})
		} else {
			fmt.Printf("↕ Moved track %d to %d\n", from+1, to+1)
		}
		return nil
	})
}

// parsePosition converts a 1-based queue position to an index.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, rcerrors.WithSuggestion(
			fmt.Errorf("invalid queue position %q", s),
			"Positions start at 1; run 'riffcord queue' to see them",
		)
	}
	return n - 1, nil
}

func trackLine(t core.Track) string {
	line := t.DisplayTitle()
	if t.Artist != "" {
		line = t.Artist + " — " + line
	}
	if t.Duration > 0 {
		line += " (" + FormatDuration(t.Duration) + ")"
	}
	return line
}

func historyJSON(items []core.QueueItem) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		out[i] = trackJSON(item.Track)
	}
	return out
}
