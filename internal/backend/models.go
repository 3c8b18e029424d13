package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/tessro/riffcord/internal/core"
)

// ServerInfo is a server entry from the servers endpoint.
type ServerInfo struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	Icon        string       `json:"icon"`
	Owner       bool         `json:"owner"`
	Permissions Permissions  `json:"permissions"`
	BotPresent  bool         `json:"bot_present"`
}

// ToCore converts to the core model.
func (s ServerInfo) ToCore() core.Server {
	return core.Server{
		ID:          s.ID.String(),
		Name:        s.Name,
		Icon:        s.Icon,
		Owner:       s.Owner,
		Permissions: int64(s.Permissions),
		BotPresent:  s.BotPresent,
	}
}

// Permissions is a Discord permission bitfield. Discord serializes it as a
// decimal string; bare numbers are accepted too.
type Permissions int64

// UnmarshalJSON accepts "1071698660929" or 1071698660929.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid permissions %q: %w", s, err)
		}
		*p = Permissions(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid permissions: %w", err)
	}
	*p = Permissions(n)
	return nil
}

// ChannelInfo is a voice channel entry.
type ChannelInfo struct {
	ID       snowflake.ID `json:"id"`
	Name     string       `json:"name"`
	Position int          `json:"position"`
}

// ToCore converts to the core model.
func (c ChannelInfo) ToCore() core.VoiceChannel {
	return core.VoiceChannel{ID: c.ID.String(), Name: c.Name, Position: c.Position}
}

// VoiceStatus is the bot's voice connection in a server.
type VoiceStatus struct {
	ChannelID *snowflake.ID `json:"channel_id"`
	Connected bool          `json:"connected"`
}

// ToCore converts to the core model.
func (v VoiceStatus) ToCore() core.BotVoiceStatus {
	s := core.BotVoiceStatus{Connected: v.Connected}
	if v.ChannelID != nil {
		s.ChannelID = v.ChannelID.String()
	}
	if s.ChannelID == "" {
		s.Connected = false
	}
	return s
}

// TrackInfo is a track as returned by search.
type TrackInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
	Uploader  string `json:"uploader"`
	Duration  int    `json:"duration"` // seconds
}

// ToCore converts to the core model.
func (t TrackInfo) ToCore() core.Track {
	return core.Track{
		ID:        t.ID,
		Title:     t.Title,
		Artist:    t.Artist,
		Thumbnail: t.Thumbnail,
		URL:       t.URL,
		Uploader:  t.Uploader,
		Duration:  time.Duration(t.Duration) * time.Second,
	}
}

// SearchResponse is the search endpoint result.
type SearchResponse struct {
	Results []TrackInfo `json:"results"`
}

type addRequest struct {
	URL  string     `json:"url"`
	User *core.User `json:"user,omitempty"`
}

type reorderRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type joinRequest struct {
	ChannelID string `json:"channel_id"`
}
