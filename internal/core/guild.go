package core

// ManageGuild is the Discord permission bit for managing a server.
const ManageGuild int64 = 0x20

// Server is a Discord server visible to the signed-in user.
type Server struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions int64  `json:"permissions"`
	BotPresent  bool   `json:"bot_present"`
}

// CanManage returns true if the user holds the manage-server permission.
func (s Server) CanManage() bool {
	return s.Owner || s.Permissions&ManageGuild == ManageGuild
}

// VoiceChannel is a voice channel in a server.
type VoiceChannel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// BotVoiceStatus reports where the bot is connected in a server.
type BotVoiceStatus struct {
	ChannelID string `json:"channel_id"`
	Connected bool   `json:"connected"`
}

// GuildState is the observable state of the guild context.
type GuildState struct {
	ActiveServerID     string         `json:"active_server_id"`
	ActiveChannelID    string         `json:"active_channel_id"`
	Servers            []Server       `json:"servers"`
	InvitableServers   []Server       `json:"invitable_servers"`
	VoiceChannels      []VoiceChannel `json:"voice_channels"`
	BotChannelID       string         `json:"bot_channel_id"`
	IsBotConnected     bool           `json:"is_bot_connected"`
	Loading            bool           `json:"loading"`
	Err                string         `json:"error,omitempty"`
	AutoConnectChecked bool           `json:"auto_connect_checked"`
}

// User is the signed-in Discord user, used for queue attribution.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
