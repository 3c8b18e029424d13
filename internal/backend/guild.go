package backend

import (
	"context"

	"github.com/samber/lo"

	"github.com/tessro/riffcord/internal/core"
)

// VoiceChannels lists the voice channels in a server.
func (c *Client) VoiceChannels(ctx context.Context, guildID string) ([]core.VoiceChannel, error) {
	var resp []ChannelInfo
	if err := c.get(ctx, guildPath(guildID, "channels"), &resp); err != nil {
		return nil, err
	}
	return lo.Map(resp, func(ch ChannelInfo, _ int) core.VoiceChannel {
		return ch.ToCore()
	}), nil
}

// BotVoiceStatus reports which voice channel the bot is in.
func (c *Client) BotVoiceStatus(ctx context.Context, guildID string) (core.BotVoiceStatus, error) {
	var resp VoiceStatus
	if err := c.get(ctx, guildPath(guildID, "voice"), &resp); err != nil {
		return core.BotVoiceStatus{}, err
	}
	return resp.ToCore(), nil
}

// JoinChannel asks the bot to join a voice channel.
func (c *Client) JoinChannel(ctx context.Context, guildID, channelID string) error {
	return c.post(ctx, guildPath(guildID, "voice", "join"), joinRequest{ChannelID: channelID}, nil)
}

// Disconnect asks the bot to leave voice in a server.
func (c *Client) Disconnect(ctx context.Context, guildID string) error {
	return c.post(ctx, guildPath(guildID, "voice", "leave"), nil, nil)
}

// Servers lists the signed-in user's servers from the servers endpoint.
func (c *Client) Servers(ctx context.Context) ([]core.Server, error) {
	var resp []ServerInfo
	if err := c.request(ctx, "GET", c.serversURL+"/api/servers", nil, &resp); err != nil {
		return nil, err
	}
	return lo.Map(resp, func(s ServerInfo, _ int) core.Server {
		return s.ToCore()
	}), nil
}
