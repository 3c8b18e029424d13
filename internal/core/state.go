package core

import (
	"slices"
	"time"
)

// ConnectionStatus describes the push channel connection.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusError        ConnectionStatus = "error"
)

// PlayerState is the observable state of the player.
//
// Server fields (CurrentTrack, Queue, IsPlaying, History) are an optimistic
// projection of the guild's playback. Device fields are authoritative when
// IsOnDeviceMode is set.
type PlayerState struct {
	CurrentTrack *Track      `json:"current_track"`
	Queue        []Track     `json:"queue"`
	IsPlaying    bool        `json:"is_playing"`
	History      []QueueItem `json:"history"`

	IsOnDeviceMode     bool    `json:"is_on_device_mode"`
	DeviceQueue        []Track `json:"device_queue"`
	DeviceCurrentTrack *Track  `json:"device_current_track"`
	DeviceIsPlaying    bool    `json:"device_is_playing"`

	CurrentTime time.Duration `json:"current_time"`
	Duration    time.Duration `json:"duration"`
	Volume      int           `json:"volume"`

	PlayerVisible bool             `json:"player_visible"`
	Status        ConnectionStatus `json:"status"`

	LastSyncVersion     int64     `json:"last_sync_version"`
	LastSyncTimestamp   time.Time `json:"last_sync_timestamp"`
	HasPendingOperation bool      `json:"has_pending_operation"`
}

// Clone returns a deep copy of the state.
func (s PlayerState) Clone() PlayerState {
	out := s
	out.CurrentTrack = cloneTrack(s.CurrentTrack)
	out.DeviceCurrentTrack = cloneTrack(s.DeviceCurrentTrack)
	out.Queue = slices.Clone(s.Queue)
	out.DeviceQueue = slices.Clone(s.DeviceQueue)
	out.History = slices.Clone(s.History)
	return out
}

// Active returns the track, queue and playing flag of whichever mode is active.
func (s PlayerState) Active() (*Track, []Track, bool) {
	if s.IsOnDeviceMode {
		return s.DeviceCurrentTrack, s.DeviceQueue, s.DeviceIsPlaying
	}
	return s.CurrentTrack, s.Queue, s.IsPlaying
}

// HasTrack returns true if the active mode has a current track.
func (s PlayerState) HasTrack() bool {
	t, _, _ := s.Active()
	return t != nil
}

// ProgressPercent returns on-device progress as a percentage (0-100).
func (s PlayerState) ProgressPercent() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.CurrentTime) / float64(s.Duration) * 100
}

func cloneTrack(t *Track) *Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
