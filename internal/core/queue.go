package core

import "slices"

// QueueItem is a track at a position in the server queue.
type QueueItem struct {
	Track     Track `json:"track"`
	Position  int   `json:"position"`
	IsCurrent bool  `json:"is_current"`
}

// MoveTrack returns a copy of tracks with the element at from reinserted at to.
// Both indices are 0-based. The input slice is never modified.
func MoveTrack(tracks []Track, from, to int) []Track {
	out := slices.Clone(tracks)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, moved)
}

// RemoveTrack returns a copy of tracks without the element at index, and the
// removed element.
func RemoveTrack(tracks []Track, index int) ([]Track, Track) {
	out := slices.Clone(tracks)
	if index < 0 || index >= len(out) {
		return out, Track{}
	}
	removed := out[index]
	return slices.Delete(out, index, index+1), removed
}

// AppendTrack returns a copy of tracks with t appended.
func AppendTrack(tracks []Track, t Track) []Track {
	out := make([]Track, 0, len(tracks)+1)
	out = append(out, tracks...)
	return append(out, t)
}
