package core

import (
	"time"

	"github.com/samber/lo"
)

// Snapshot is a complete playback state pushed by the server.
type Snapshot struct {
	Queue      []QueueItem
	IsPlaying  bool
	History    []QueueItem
	HasHistory bool
	Version    int64
	Timestamp  time.Time
}

// Partition splits the snapshot queue on the current flag. The flagged entry
// becomes the current track; the rest, in order, become the upcoming queue.
func (s Snapshot) Partition() (*Track, []Track) {
	var current *Track
	upcoming := make([]Track, 0, len(s.Queue))
	for _, item := range s.Queue {
		if item.IsCurrent && current == nil {
			t := item.Track
			current = &t
			continue
		}
		upcoming = append(upcoming, item.Track)
	}
	return current, upcoming
}

// CurrentCount returns how many queue entries carry the current flag.
func (s Snapshot) CurrentCount() int {
	return lo.CountBy(s.Queue, func(item QueueItem) bool {
		return item.IsCurrent
	})
}
