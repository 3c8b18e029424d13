package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

// MessageUpdate is the envelope type carrying a playback snapshot.
const MessageUpdate = "update"

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Thumbnail string  `json:"thumbnail"`
	URL       string  `json:"url"`
	Uploader  string  `json:"uploader"`
	Position  int     `json:"position"`
	IsCurrent bool    `json:"isCurrent"`
	Duration  float64 `json:"duration"` // seconds
}

type wireUpdate struct {
	Queue     []wireItem  `json:"queue"`
	IsPlaying bool        `json:"is_playing"`
	History   *[]wireItem `json:"history"`
	Version   int64       `json:"version"`
	Timestamp int64       `json:"timestamp"` // unix ms
}

// Decode parses one channel message. ok is false for message types other
// than update. Updates that fail validation return ErrMalformedMessage.
func Decode(data []byte) (snap core.Snapshot, ok bool, err error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return core.Snapshot{}, false, fmt.Errorf("%w: %w", rcerrors.ErrMalformedMessage, err)
	}
	if env.Type != MessageUpdate {
		return core.Snapshot{}, false, nil
	}

	// Some servers send the payload inline next to the type tag.
	payload := []byte(env.Data)
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = data
	}

	var u wireUpdate
	if err := json.Unmarshal(payload, &u); err != nil {
		return core.Snapshot{}, false, fmt.Errorf("%w: %w", rcerrors.ErrMalformedMessage, err)
	}
	snap, err = u.snapshot()
	if err != nil {
		return core.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (u wireUpdate) snapshot() (core.Snapshot, error) {
	if u.Version < 0 {
		return core.Snapshot{}, fmt.Errorf("%w: negative version %d", rcerrors.ErrMalformedMessage, u.Version)
	}

	queue, err := convertItems(u.Queue)
	if err != nil {
		return core.Snapshot{}, err
	}

	snap := core.Snapshot{
		Queue:     queue,
		IsPlaying: u.IsPlaying,
		Version:   u.Version,
	}
	if snap.CurrentCount() > 1 {
		return core.Snapshot{}, fmt.Errorf("%w: %d entries flagged current", rcerrors.ErrMalformedMessage, snap.CurrentCount())
	}
	if u.History != nil {
		snap.HasHistory = true
		if snap.History, err = convertItems(*u.History); err != nil {
			return core.Snapshot{}, err
		}
	}
	if u.Timestamp > 0 {
		snap.Timestamp = time.UnixMilli(u.Timestamp)
	}
	return snap, nil
}

func convertItems(items []wireItem) ([]core.QueueItem, error) {
	out := make([]core.QueueItem, 0, len(items))
	for i, it := range items {
		if it.Title == "" && it.URL == "" {
			return nil, fmt.Errorf("%w: entry %d has no title or url", rcerrors.ErrMalformedMessage, i)
		}
		out = append(out, core.QueueItem{
			Track: core.Track{
				ID:        it.ID,
				Title:     it.Title,
				Artist:    it.Artist,
				Thumbnail: it.Thumbnail,
				URL:       it.URL,
				Uploader:  it.Uploader,
				Duration:  time.Duration(it.Duration * float64(time.Second)),
			},
			Position:  it.Position,
			IsCurrent: it.IsCurrent,
		})
	}
	return out, nil
}
