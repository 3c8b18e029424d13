package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"now", "np"},
	Short:   "Show current playback status",
	Long:    `Shows what the bot is playing in the active server, where it is connected and how fresh the view is.`,
	RunE:    runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Player core.PlayerState
	Guild  core.GuildState
	Server *core.Server
	User   *core.User

	// DeviceMode is the remembered mode; one-shot clients always sync
	// with the server.
	DeviceMode bool
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withClient(cmd.Context(), func(ctx context.Context, c *client) error {
		result := collectStatus(ctx, c)
		if Verbose() && result.HasErrors() {
			fmt.Fprintln(os.Stderr, result.ErrorSummary())
		}

		if JSONOutput() {
			return outputStatusJSON(result.Data)
		}
		return outputStatusTable(result.Data)
	})
}

// collectStatus gathers what it can; failures are kept alongside the data.
func collectStatus(ctx context.Context, c *client) *rcerrors.PartialResult[statusReport] {
	result := &rcerrors.PartialResult[statusReport]{}

	result.Data.Player = c.awaitSync(ctx)
	result.Data.User = c.auth.User()
	if saved, err := c.prefs.Load(); err != nil {
		result.AddError(err)
	} else {
		result.Data.DeviceMode = saved.Player.IsOnDeviceMode
	}

	servers, err := c.guild.FetchMutualServers(ctx, false)
	if err != nil {
		result.AddError(err)
	}
	result.Data.Guild = c.guild.State()
	if s, ok := lo.Find(servers, func(s core.Server) bool { return s.ID == result.Data.Guild.ActiveServerID }); ok {
		result.Data.Server = &s
	}
	if result.Data.Guild.Err != "" && err == nil {
		result.AddError(fmt.Errorf("guild context: %s", result.Data.Guild.Err))
	}
	return result
}

func outputStatusJSON(r statusReport) error {
	st := r.Player
	current, queue, playing := st.Active()

	item := map[string]any{
		"mode":             modeName(r.DeviceMode),
		"connection":       st.Status,
		"is_playing":       playing,
		"queue_length":     len(queue),
		"sync_version":     st.LastSyncVersion,
		"pending":          st.HasPendingOperation,
		"active_server_id": r.Guild.ActiveServerID,
		"bot_channel_id":   r.Guild.BotChannelID,
		"is_bot_connected": r.Guild.IsBotConnected,
	}
	if current != nil {
		item["track"] = trackJSON(*current)
	}
	if !st.LastSyncTimestamp.IsZero() {
		item["synced_at"] = st.LastSyncTimestamp
	}
	if r.Server != nil {
		item["server"] = r.Server.Name
	}
	if r.User != nil {
		item["user"] = r.User.Username
	}

	return json.NewEncoder(os.Stdout).Encode(item)
}

func outputStatusTable(r statusReport) error {
	st := r.Player

	server := "none selected"
	if r.Server != nil {
		server = r.Server.Name
	} else if r.Guild.ActiveServerID != "" {
		server = r.Guild.ActiveServerID
	}
	fmt.Printf("[%s]\n", strings.ToUpper(server))

	current, queue, playing := st.Active()
	if current == nil {
		fmt.Println("  No track playing")
	} else {
		playIcon := "▶"
		if !playing {
			playIcon = "⏸"
		}
		fmt.Printf("  %s %s\n", playIcon, current.DisplayTitle())
		if current.Artist != "" {
			fmt.Printf("    %s\n", current.Artist)
		}
		if st.IsOnDeviceMode && st.Duration > 0 {
			fmt.Printf("    %s %s / %s\n",
				FormatProgress(st.CurrentTime, st.Duration, 30),
				FormatDuration(st.CurrentTime),
				FormatDuration(st.Duration))
		} else if current.Duration > 0 {
			fmt.Printf("    %s\n", FormatDuration(current.Duration))
		}
	}
	if len(queue) > 0 {
		fmt.Printf("  ⏭ %s up next\n", humanize.Comma(int64(len(queue))))
	}

	fmt.Println()
	fmt.Printf("  Mode:  %s\n", modeName(r.DeviceMode))
	conn := string(st.Status)
	if !st.LastSyncTimestamp.IsZero() {
		conn += ", synced " + humanize.Time(st.LastSyncTimestamp)
	}
	fmt.Printf("  Sync:  %s %s\n", SyncIcon(st.Status), conn)
	if r.Guild.IsBotConnected {
		name := r.Guild.BotChannelID
		if ch, ok := lo.Find(r.Guild.VoiceChannels, func(c core.VoiceChannel) bool { return c.ID == r.Guild.BotChannelID }); ok {
			name = ch.Name
		}
		fmt.Printf("  Voice: 🔈 %s\n", name)
	} else if r.Guild.ActiveServerID != "" {
		fmt.Println("  Voice: not connected")
	}
	if r.User != nil {
		fmt.Printf("  User:  %s\n", r.User.Username)
	} else {
		fmt.Println("  User:  not signed in")
	}

	return nil
}
