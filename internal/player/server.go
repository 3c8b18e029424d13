package player

import (
	"context"
	"fmt"
	"slices"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
	"github.com/tessro/riffcord/internal/notify"
)

// rollback holds the server-mode fields an optimistic update may touch.
type rollback struct {
	current *core.Track
	queue   []core.Track
	playing bool
	visible bool
}

func (p *Player) captureLocked() rollback {
	s := p.state.Clone()
	return rollback{
		current: s.CurrentTrack,
		queue:   s.Queue,
		playing: s.IsPlaying,
		visible: s.PlayerVisible,
	}
}

func (p *Player) restoreLocked(r rollback) {
	p.state.CurrentTrack = r.current
	p.state.Queue = r.queue
	p.state.IsPlaying = r.playing
	p.state.PlayerVisible = r.visible
}

// pendingOp is an optimistic update still projected onto local state. It
// lives until a snapshot replaces local state or its call fails.
type pendingOp struct {
	id     string
	action string
	saved  rollback
	apply  mutation
}

// mutation applies an optimistic change to the locked state. It returns the
// title of the track the action is about, or an error to reject the action
// before anything changes.
type mutation func(s *core.PlayerState) (subject string, err error)

// remoteCall issues the backend request for an action.
type remoteCall func(ctx context.Context, guildID string) error

// optimistic runs the capture, apply, call, rollback protocol for a
// server-mode action.
func (p *Player) optimistic(ctx context.Context, action string, apply mutation, call remoteCall) error {
	guildID := p.serverID()
	if guildID == "" {
		return p.reject(rcerrors.ErrNoActiveServer, "Select a server first")
	}

	p.mu.Lock()
	saved := p.captureLocked()
	subject, err := apply(&p.state)
	if err != nil {
		p.restoreLocked(saved)
		p.mu.Unlock()
		aerr := rcerrors.ActionOn(action, subject, err)
		return p.reject(aerr, aerr.Message())
	}
	opID := p.beginPendingLocked(action)
	op := &pendingOp{id: opID, action: action, saved: saved, apply: apply}
	p.ops = append(p.ops, op)
	p.publishLocked()
	p.mu.Unlock()

	log := p.logger.With().Str("op", opID).Str("action", action).Str("guild", guildID).Logger()
	log.Debug().Msg("optimistic update applied")

	if err := call(ctx, guildID); err != nil {
		p.mu.Lock()
		rolledBack := p.rollbackLocked(op)
		p.publishLocked()
		p.mu.Unlock()

		aerr := rcerrors.ActionOn(action, subject, err)
		if rolledBack {
			log.Warn().Err(err).Msg("remote call failed; rolled back")
		} else {
			log.Warn().Err(err).Msg("remote call failed after a snapshot replaced local state")
		}
		p.notifier.Notify(notify.LevelError, aerr.Message())
		return aerr
	}

	// Pending stays set until a confirming snapshot or the safety timeout.
	log.Debug().Msg("remote call accepted")
	return nil
}

// rollbackLocked undoes op and replays the optimistic updates issued after
// it on top of the restored state. It reports false when a snapshot has
// already replaced the state op was applied to.
func (p *Player) rollbackLocked(op *pendingOp) bool {
	i := slices.Index(p.ops, op)
	if i < 0 {
		return false
	}
	later := slices.Clone(p.ops[i+1:])
	p.ops = slices.Clone(p.ops[:i])
	p.restoreLocked(op.saved)

	for _, o := range later {
		o.saved = p.captureLocked()
		if _, err := o.apply(&p.state); err != nil {
			p.restoreLocked(o.saved)
			p.logger.Debug().Err(err).Str("op", o.id).Str("action", o.action).
				Msg("dropping optimistic update that no longer applies")
			continue
		}
		p.ops = append(p.ops, o)
	}

	// The pending flag follows the newest update still in flight.
	if p.pendingID != "" && !slices.ContainsFunc(p.ops, func(o *pendingOp) bool { return o.id == p.pendingID }) {
		if n := len(p.ops); n > 0 {
			p.armPendingLocked(p.ops[n-1].id, p.ops[n-1].action)
		} else {
			p.clearPendingLocked()
		}
	}
	return true
}

func (p *Player) reject(err error, message string) error {
	p.logger.Warn().Err(err).Msg("operation rejected")
	p.notifier.Notify(notify.LevelError, message)
	return err
}

// Play resumes playback.
func (p *Player) Play(ctx context.Context) error {
	if p.State().IsOnDeviceMode {
		return p.devicePlay(ctx)
	}
	return p.optimistic(ctx, "play", func(s *core.PlayerState) (string, error) {
		s.IsPlaying = true
		return "", nil
	}, p.backend.Resume)
}

// Pause pauses playback.
func (p *Player) Pause(ctx context.Context) error {
	if p.State().IsOnDeviceMode {
		p.devicePause()
		return nil
	}
	return p.optimistic(ctx, "pause", func(s *core.PlayerState) (string, error) {
		s.IsPlaying = false
		return "", nil
	}, p.backend.Pause)
}

// Skip advances to the next queued track.
func (p *Player) Skip(ctx context.Context) error {
	if p.State().IsOnDeviceMode {
		return p.deviceSkip(ctx)
	}
	return p.optimistic(ctx, "skip", func(s *core.PlayerState) (string, error) {
		if len(s.Queue) == 0 {
			s.CurrentTrack = nil
			s.IsPlaying = false
			return "", nil
		}
		next := s.Queue[0]
		s.CurrentTrack = &next
		s.Queue = s.Queue[1:]
		return "", nil
	}, p.backend.Skip)
}

// Previous is intentionally a no-op: returning to the previous track is not
// supported by the bot.
func (p *Player) Previous(ctx context.Context) error {
	p.logger.Debug().Msg("previous track is not supported")
	return nil
}

// AddToQueue queues t, or makes it current when nothing is playing.
func (p *Player) AddToQueue(ctx context.Context, t core.Track) error {
	if p.State().IsOnDeviceMode {
		p.deviceAdd(t)
		return nil
	}

	user := p.user()
	if user == nil {
		return p.reject(rcerrors.ErrNoUser, "Sign in to add tracks to the queue")
	}
	return p.optimistic(ctx, "add", func(s *core.PlayerState) (string, error) {
		if s.CurrentTrack == nil {
			track := t
			s.CurrentTrack = &track
			s.PlayerVisible = true
		} else {
			s.Queue = core.AppendTrack(s.Queue, t)
		}
		return t.DisplayTitle(), nil
	}, func(ctx context.Context, guildID string) error {
		return p.backend.AddToQueue(ctx, guildID, t.URL, user)
	})
}

// ReorderQueue moves the queue entry at from to to. Indices are 0-based.
func (p *Player) ReorderQueue(ctx context.Context, from, to int) error {
	if p.State().IsOnDeviceMode {
		return p.deviceReorder(from, to)
	}
	return p.optimistic(ctx, "move", func(s *core.PlayerState) (string, error) {
		if err := checkIndex(from, len(s.Queue)); err != nil {
			return "", err
		}
		if err := checkIndex(to, len(s.Queue)); err != nil {
			return s.Queue[from].DisplayTitle(), err
		}
		subject := s.Queue[from].DisplayTitle()
		s.Queue = core.MoveTrack(s.Queue, from, to)
		return subject, nil
	}, func(ctx context.Context, guildID string) error {
		// The backend counts queue positions from 1.
		return p.backend.ReorderQueue(ctx, guildID, from+1, to+1)
	})
}

// RemoveFromQueue removes the queue entry at index (0-based).
func (p *Player) RemoveFromQueue(ctx context.Context, index int) error {
	if p.State().IsOnDeviceMode {
		return p.deviceRemove(index)
	}
	return p.optimistic(ctx, "remove", func(s *core.PlayerState) (string, error) {
		if err := checkIndex(index, len(s.Queue)); err != nil {
			return "", err
		}
		var removed core.Track
		s.Queue, removed = core.RemoveTrack(s.Queue, index)
		return removed.DisplayTitle(), nil
	}, func(ctx context.Context, guildID string) error {
		return p.backend.RemoveFromQueue(ctx, guildID, index)
	})
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d (queue has %d)", rcerrors.ErrIndexOutOfRange, i, n)
	}
	return nil
}
