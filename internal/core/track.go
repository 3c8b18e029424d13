package core

import "time"

// Track represents a playable audio track.
type Track struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	Thumbnail string        `json:"thumbnail"`
	URL       string        `json:"url"`
	Uploader  string        `json:"uploader,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Key returns a stable identity for the track, preferring the ID over the URL.
func (t Track) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return t.URL
}

// DisplayTitle returns the title, falling back to the URL for untitled tracks.
func (t Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.URL
}
