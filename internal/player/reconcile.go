package player

import (
	"time"

	"github.com/google/uuid"

	"github.com/tessro/riffcord/internal/core"
	"github.com/tessro/riffcord/internal/realtime"
)

func (p *Player) snapshotHandler(gen int) realtime.SnapshotFunc {
	return func(snap core.Snapshot) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.connGen {
			return
		}
		if p.debounce <= 0 {
			p.applyLocked(snap)
			return
		}

		// Trailing-edge debounce: each arrival restarts the window and only
		// the newest snapshot survives.
		p.stopDebounceLocked()
		p.latest = &snap
		p.debounceGen++
		dgen := p.debounceGen
		p.debounceTimer = time.AfterFunc(p.debounce, func() {
			p.flushDebounced(gen, dgen)
		})
	}
}

func (p *Player) flushDebounced(gen, dgen int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.connGen || dgen != p.debounceGen || p.latest == nil {
		return
	}
	snap := *p.latest
	p.latest = nil
	p.debounceTimer = nil
	p.applyLocked(snap)
}

func (p *Player) stopDebounceLocked() {
	if p.debounceTimer != nil {
		p.debounceTimer.Stop()
		p.debounceTimer = nil
	}
	p.debounceGen++
	p.latest = nil
}

// applyLocked runs the version gate and, if the snapshot passes, replaces
// the server-mode fields with it.
func (p *Player) applyLocked(snap core.Snapshot) bool {
	v, last := snap.Version, p.state.LastSyncVersion
	if p.state.HasPendingOperation && v <= last {
		p.logger.Debug().Int64("version", v).Int64("last", last).Msg("snapshot held back by pending operation")
		return false
	}
	if v > 0 && v < last {
		p.logger.Debug().Int64("version", v).Int64("last", last).Msg("discarding stale snapshot")
		return false
	}

	current, queue := snap.Partition()
	p.state.CurrentTrack = current
	p.state.Queue = queue
	p.state.IsPlaying = snap.IsPlaying
	if snap.HasHistory {
		p.state.History = snap.History
	}
	p.state.LastSyncVersion = max(last, v)
	p.state.LastSyncTimestamp = snap.Timestamp
	if p.state.LastSyncTimestamp.IsZero() {
		p.state.LastSyncTimestamp = time.Now()
	}
	if p.state.HasPendingOperation {
		p.clearPendingLocked()
	}
	// Server state now includes or supersedes every optimistic update.
	p.ops = nil

	p.logger.Debug().Int64("version", v).Int("queue", len(queue)).Msg("snapshot applied")
	p.publishLocked()
	return true
}

// beginPendingLocked marks an optimistic update in flight and arms the
// safety timeout. It returns the operation id.
func (p *Player) beginPendingLocked(action string) string {
	id := uuid.NewString()
	p.armPendingLocked(id, action)
	return id
}

func (p *Player) armPendingLocked(id, action string) {
	if p.pendingTimer != nil {
		p.pendingTimer.Stop()
	}
	p.pendingID = id
	p.state.HasPendingOperation = true
	p.pendingTimer = time.AfterFunc(p.pendingTimeout, func() {
		p.expirePending(id, action)
	})
}

func (p *Player) expirePending(id, action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingID != id {
		return
	}
	p.logger.Warn().
		Str("op", id).
		Str("action", action).
		Dur("timeout", p.pendingTimeout).
		Msg("no confirming snapshot; releasing pending operation")
	p.clearPendingLocked()
	p.publishLocked()
}

func (p *Player) clearPendingLocked() {
	if p.pendingTimer != nil {
		p.pendingTimer.Stop()
		p.pendingTimer = nil
	}
	p.pendingID = ""
	p.state.HasPendingOperation = false
}
