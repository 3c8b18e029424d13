package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
	"github.com/tessro/riffcord/internal/wizard"
)

var (
	serversRefresh bool
	serversAll     bool
)

// nameWidth caps server and channel names in tables.
const nameWidth = 40

var serversCmd = &cobra.Command{
	Use:     "servers",
	Aliases: []string{"server"},
	Short:   "List servers shared with the bot",
	Long: `Lists your Discord servers that the bot is in. With --all, servers
you could invite the bot to are listed as well.`,
	RunE: runServersList,
}

var serversUseCmd = &cobra.Command{
	Use:   "use [id|name]",
	Short: "Select the active server",
	Long: `Selects the server that playback commands act on. Without arguments
a picker opens, unless you share only one server with the bot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServersUse,
}

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "List voice channels in the active server",
	Long:  `Lists the active server's voice channels and where the bot is connected.`,
	RunE:  runVoiceList,
}

var voiceJoinCmd = &cobra.Command{
	Use:   "join [id|name]",
	Short: "Move the bot to a voice channel",
	Long:  `Asks the bot to join a voice channel. Without arguments a picker opens.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVoiceJoin,
}

var voiceLeaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Disconnect the bot from voice",
	RunE:  runVoiceLeave,
}

func init() {
	serversCmd.Flags().BoolVarP(&serversRefresh, "refresh", "r", false, "Bypass the cached server list")
	serversCmd.Flags().BoolVarP(&serversAll, "all", "a", false, "Include servers the bot can be invited to")

	serversCmd.AddCommand(serversUseCmd)
	voiceCmd.AddCommand(voiceJoinCmd)
	voiceCmd.AddCommand(voiceLeaveCmd)
	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(voiceCmd)
}

// withGuild runs fn against a client whose player stays disconnected.
func withGuild(ctx context.Context, load bool, fn func(ctx context.Context, c *client) error) error {
	c, err := newClient(clientOptions{})
	if err != nil {
		return err
	}
	defer c.close()

	if load {
		if err := c.guild.Start(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, c)
}

func runServersList(cmd *cobra.Command, args []string) error {
	return withGuild(cmd.Context(), false, func(ctx context.Context, c *client) error {
		mutual, err := c.guild.FetchMutualServers(ctx, serversRefresh)
		if err != nil {
			return err
		}
		st := c.guild.State()

		if JSONOutput() {
			out := map[string]any{
				"active_server_id": st.ActiveServerID,
				"servers":          mutual,
			}
			if serversAll {
				out["invitable"] = st.InvitableServers
			}
			return json.NewEncoder(os.Stdout).Encode(out)
		}

		if len(mutual) == 0 && (!serversAll || len(st.InvitableServers) == 0) {
			fmt.Println("The bot is not in any of your servers")
			return nil
		}

		table := NewTable("", "NAME", "ID", "CREATED")
		for _, s := range mutual {
			table.Row(StatusIcon(s.ID == st.ActiveServerID), TruncateString(s.Name, nameWidth), s.ID, created(s.ID))
		}
		table.Flush()

		if serversAll && len(st.InvitableServers) > 0 {
			fmt.Println("\nInvite the bot to:")
			table := NewTable("", "NAME", "ID", "CREATED")
			for _, s := range st.InvitableServers {
				table.Row("+", TruncateString(s.Name, nameWidth), s.ID, created(s.ID))
			}
			table.Flush()
		}
		return nil
	})
}

// created reports a snowflake's age, or "" for ids that do not parse.
func created(id string) string {
	sf, err := snowflake.Parse(id)
	if err != nil {
		return ""
	}
	return humanize.Time(sf.Time())
}

func runServersUse(cmd *cobra.Command, args []string) error {
	return withGuild(cmd.Context(), false, func(ctx context.Context, c *client) error {
		mutual, err := c.guild.FetchMutualServers(ctx, false)
		if err != nil {
			return err
		}
		if len(mutual) == 0 {
			return rcerrors.WithSuggestion(
				fmt.Errorf("the bot is not in any of your servers"),
				"Run 'riffcord servers --all' to see servers you can invite it to",
			)
		}

		var server *core.Server
		switch {
		case len(args) > 0:
			s, ok := lo.Find(mutual, func(s core.Server) bool {
				return s.ID == args[0] || strings.EqualFold(s.Name, args[0])
			})
			if !ok {
				return rcerrors.WithSuggestion(
					fmt.Errorf("server %q not found", args[0]),
					"Run 'riffcord servers' to list servers shared with the bot",
				)
			}
			server = &s
		case wizard.SoleServer(mutual) != nil:
			server = wizard.SoleServer(mutual)
		default:
			interactive := wizard.NewInteractive()
			interactive.SetEnabled(!JSONOutput())
			if !interactive.CanInteract() {
				return fmt.Errorf("a server id or name is required")
			}
			id, err := interactive.PromptServer(mutual, c.guild.ActiveServerID())
			if err != nil || id == "" {
				return err
			}
			s, _ := lo.Find(mutual, func(s core.Server) bool { return s.ID == id })
			server = &s
		}

		if err := c.guild.SetActiveServerID(ctx, server.ID); err != nil {
			return err
		}

		if JSONOutput() {
			printJSON(map[string]string{"status": "selected", "id": server.ID, "name": server.Name})
		} else {
			fmt.Printf("🎧 Using %s\n", server.Name)
		}
		return nil
	})
}

func runVoiceList(cmd *cobra.Command, args []string) error {
	return withGuild(cmd.Context(), true, func(ctx context.Context, c *client) error {
		st := c.guild.State()
		if st.ActiveServerID == "" {
			return rcerrors.ErrNoActiveServer
		}

		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"channels":         st.VoiceChannels,
				"bot_channel_id":   st.BotChannelID,
				"is_bot_connected": st.IsBotConnected,
			})
		}

		if len(st.VoiceChannels) == 0 {
			fmt.Println("This server has no voice channels")
			return nil
		}

		table := NewTable("", "CHANNEL", "ID")
		for _, ch := range st.VoiceChannels {
			table.Row(StatusIcon(st.IsBotConnected && ch.ID == st.BotChannelID), TruncateString(ch.Name, nameWidth), ch.ID)
		}
		table.Flush()
		return nil
	})
}

func runVoiceJoin(cmd *cobra.Command, args []string) error {
	return withGuild(cmd.Context(), true, func(ctx context.Context, c *client) error {
		st := c.guild.State()
		if st.ActiveServerID == "" {
			return rcerrors.ErrNoActiveServer
		}

		var channelID string
		if len(args) > 0 {
			ch, ok := lo.Find(st.VoiceChannels, func(ch core.VoiceChannel) bool {
				return ch.ID == args[0] || strings.EqualFold(ch.Name, args[0])
			})
			if !ok {
				return rcerrors.WithSuggestion(
					fmt.Errorf("voice channel %q not found", args[0]),
					"Run 'riffcord voice' to list voice channels",
				)
			}
			channelID = ch.ID
		} else {
			interactive := wizard.NewInteractive()
			interactive.SetEnabled(!JSONOutput())
			if !interactive.CanInteract() {
				return fmt.Errorf("a voice channel id or name is required")
			}
			id, err := interactive.PromptChannel(st.VoiceChannels, st.BotChannelID)
			if err != nil || id == "" {
				return err
			}
			channelID = id
		}

		if err := c.guild.JoinChannel(ctx, channelID); err != nil {
			return err
		}

		name := channelID
		if ch, ok := lo.Find(st.VoiceChannels, func(ch core.VoiceChannel) bool { return ch.ID == channelID }); ok {
			name = ch.Name
		}
		if JSONOutput() {
			printJSON(map[string]string{"status": "joined", "channel_id": channelID, "name": name})
		} else {
			fmt.Printf("🔈 Joined %s\n", name)
		}
		return nil
	})
}

func runVoiceLeave(cmd *cobra.Command, args []string) error {
	return withGuild(cmd.Context(), false, func(ctx context.Context, c *client) error {
		if err := c.guild.Leave(ctx); err != nil {
			return err
		}
		if JSONOutput() {
			printJSON(map[string]string{"status": "left"})
		} else {
			fmt.Println("👋 Left voice")
		}
		return nil
	})
}
