package tail

import (
	"context"
	"slices"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/tessro/riffcord/internal/core"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackComplete
	EventTrackSkip
	EventPause
	EventResume
	EventQueueChange
	EventVolumeChange
	EventStatusChange
	EventModeChange
)

// Event represents a playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *core.PlayerState
	Current   *core.PlayerState
}

// Source publishes player states. *player.Player implements it.
type Source interface {
	Subscribe() (<-chan core.PlayerState, func())
}

// Watcher turns a stream of player states into events.
type Watcher struct {
	source Source
	events chan Event
	done   chan struct{}
}

// NewWatcher creates a new state watcher.
func NewWatcher(source Source) *Watcher {
	return &Watcher{
		source: source,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// Events returns the channel of playback events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start consumes state updates until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	defer close(w.events)

	states, unsubscribe := w.source.Subscribe()
	defer unsubscribe()

	var (
		prev     *core.PlayerState
		prevHash uint64
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			curr := st
			h, err := hashstructure.Hash(observed(curr), hashstructure.FormatV2, nil)
			if err == nil && prev != nil && h == prevHash {
				// Progress ticks and sync bookkeeping only.
				prev = &curr
				continue
			}
			prevHash = h

			for _, e := range diffStates(prev, &curr) {
				select {
				case w.events <- e:
				default:
					// Drop event if channel is full
				}
			}
			prev = &curr
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}

// view is the part of the state that events are derived from.
type view struct {
	Track    *core.Track
	Queue    []core.Track
	Playing  bool
	OnDevice bool
	Volume   int
	Status   core.ConnectionStatus
}

func observed(s core.PlayerState) view {
	t, q, playing := s.Active()
	return view{
		Track:    t,
		Queue:    q,
		Playing:  playing,
		OnDevice: s.IsOnDeviceMode,
		Volume:   s.Volume,
		Status:   s.Status,
	}
}

// diffStates compares two states and returns detected events.
func diffStates(prev, curr *core.PlayerState) []Event {
	if curr == nil {
		return nil
	}

	now := time.Now()
	event := func(t EventType) Event {
		return Event{Type: t, Timestamp: now, Previous: prev, Current: curr}
	}

	// First state - no previous state
	if prev == nil {
		if curr.HasTrack() {
			return []Event{event(EventTrackChange)}
		}
		return nil
	}

	var events []Event

	if prev.Status != curr.Status {
		events = append(events, event(EventStatusChange))
	}

	// A mode switch replaces the whole view; report it alone.
	if prev.IsOnDeviceMode != curr.IsOnDeviceMode {
		return append(events, event(EventModeChange))
	}

	pv, cv := observed(*prev), observed(*curr)

	if trackChanged(pv.Track, cv.Track) {
		eventType := EventTrackChange
		if pv.Track != nil && cv.Track == nil && wasCompleted(prev) {
			eventType = EventTrackComplete
		} else if pv.Track != nil && cv.Track != nil {
			if wasCompleted(prev) {
				eventType = EventTrackComplete
			} else if advancedFromQueue(pv.Queue, cv.Track) {
				eventType = EventTrackSkip
			}
		}
		events = append(events, event(eventType))
	}

	// Pause/Resume detection
	if pv.Playing && !cv.Playing {
		events = append(events, event(EventPause))
	} else if !pv.Playing && cv.Playing {
		events = append(events, event(EventResume))
	}

	if queueChanged(pv, cv) {
		events = append(events, event(EventQueueChange))
	}

	if pv.Volume != cv.Volume {
		events = append(events, event(EventVolumeChange))
	}

	return events
}

// trackChanged returns true if the track changed.
func trackChanged(prev, curr *core.Track) bool {
	if prev == nil && curr == nil {
		return false
	}
	if prev == nil || curr == nil {
		return true
	}
	return prev.Key() != curr.Key()
}

// wasCompleted returns true if on-device progress reached the end of the track.
func wasCompleted(state *core.PlayerState) bool {
	if !state.IsOnDeviceMode || state.Duration == 0 {
		return false
	}
	// Consider completed if progress is >= 95% of duration
	return state.ProgressPercent() >= 95
}

// advancedFromQueue returns true if next was at the head of the previous queue.
func advancedFromQueue(queue []core.Track, next *core.Track) bool {
	return len(queue) > 0 && queue[0].Key() == next.Key()
}

// queueChanged reports queue edits other than the head being promoted to
// current by a track change.
func queueChanged(prev, curr view) bool {
	pq := prev.Queue
	if trackChanged(prev.Track, curr.Track) && curr.Track != nil && advancedFromQueue(pq, curr.Track) {
		pq = pq[1:]
	}
	return !slices.EqualFunc(pq, curr.Queue, func(a, b core.Track) bool {
		return a.Key() == b.Key()
	})
}
