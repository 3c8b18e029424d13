package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
	"github.com/tessro/riffcord/internal/notify"
)

// ErrNotOnDevice is returned by transport controls that only exist for
// local playback.
var ErrNotOnDevice = errors.New("only available in on-device mode")

func (p *Player) devicePlay(ctx context.Context) error {
	p.mu.Lock()
	if p.state.DeviceCurrentTrack == nil && len(p.state.DeviceQueue) > 0 {
		next := p.state.DeviceQueue[0]
		p.state.DeviceCurrentTrack = &next
		p.state.DeviceQueue = p.state.DeviceQueue[1:]
	}
	if p.state.DeviceCurrentTrack == nil {
		p.mu.Unlock()
		return nil
	}
	track := *p.state.DeviceCurrentTrack
	p.state.PlayerVisible = true
	p.publishLocked()
	p.mu.Unlock()

	return p.startAudio(ctx, track)
}

// startAudio plays track and records the outcome if it is still current.
func (p *Player) startAudio(ctx context.Context, track core.Track) error {
	if p.audio == nil {
		return p.audioFailed(track, fmt.Errorf("%w: no audio output", rcerrors.ErrPlaybackBlocked))
	}
	if err := p.audio.Play(ctx, track); err != nil {
		return p.audioFailed(track, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cur := p.state.DeviceCurrentTrack; cur != nil && cur.Key() == track.Key() && p.state.IsOnDeviceMode {
		p.state.DeviceIsPlaying = true
		p.publishLocked()
	}
	return nil
}

func (p *Player) audioFailed(track core.Track, err error) error {
	p.mu.Lock()
	p.state.DeviceIsPlaying = false
	p.publishLocked()
	p.mu.Unlock()

	p.logger.Warn().Err(err).Str("track", track.DisplayTitle()).Msg("local playback failed")
	if errors.Is(err, rcerrors.ErrPlaybackBlocked) {
		p.notifier.Notify(notify.LevelError, "Audio output is blocked. Check your sound device and press play again")
		return err
	}
	aerr := &rcerrors.ActionError{Action: "play", Subject: track.DisplayTitle(), Err: err}
	p.notifier.Notify(notify.LevelError, aerr.Message())
	return aerr
}

func (p *Player) devicePause() {
	if p.audio != nil {
		p.audio.Pause()
	}
	p.mu.Lock()
	p.state.DeviceIsPlaying = false
	p.publishLocked()
	p.mu.Unlock()
}

func (p *Player) deviceSkip(ctx context.Context) error {
	p.mu.Lock()
	wasPlaying := p.state.DeviceIsPlaying
	if len(p.state.DeviceQueue) == 0 {
		p.state.DeviceCurrentTrack = nil
		p.state.DeviceQueue = nil
		p.state.DeviceIsPlaying = false
		p.state.CurrentTime = 0
		p.state.Duration = 0
		p.publishLocked()
		p.mu.Unlock()
		if p.audio != nil {
			p.audio.Stop()
		}
		return nil
	}

	next := p.state.DeviceQueue[0]
	p.state.DeviceCurrentTrack = &next
	p.state.DeviceQueue = p.state.DeviceQueue[1:]
	p.state.DeviceIsPlaying = false
	p.state.CurrentTime = 0
	p.state.Duration = next.Duration
	p.publishLocked()
	p.mu.Unlock()

	if p.audio != nil {
		p.audio.Stop()
	}
	if !wasPlaying {
		return nil
	}
	return p.startAudio(ctx, next)
}

// trackEnded advances the device queue when local audio finishes.
func (p *Player) trackEnded() {
	p.mu.Lock()
	onDevice := p.state.IsOnDeviceMode
	p.state.DeviceIsPlaying = onDevice
	p.mu.Unlock()
	if !onDevice {
		return
	}
	_ = p.deviceSkip(context.Background())
}

func (p *Player) deviceAdd(t core.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.DeviceCurrentTrack == nil {
		track := t
		p.state.DeviceCurrentTrack = &track
		p.state.Duration = t.Duration
		p.state.PlayerVisible = true
	} else {
		p.state.DeviceQueue = core.AppendTrack(p.state.DeviceQueue, t)
	}
	p.publishLocked()
}

func (p *Player) deviceReorder(from, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.state.DeviceQueue)
	if err := checkIndex(from, n); err != nil {
		return err
	}
	if err := checkIndex(to, n); err != nil {
		return err
	}
	p.state.DeviceQueue = core.MoveTrack(p.state.DeviceQueue, from, to)
	p.publishLocked()
	return nil
}

func (p *Player) deviceRemove(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := checkIndex(index, len(p.state.DeviceQueue)); err != nil {
		return err
	}
	p.state.DeviceQueue, _ = core.RemoveTrack(p.state.DeviceQueue, index)
	p.publishLocked()
	return nil
}

// Seek moves local playback to position.
func (p *Player) Seek(ctx context.Context, position time.Duration) error {
	p.mu.Lock()
	if !p.state.IsOnDeviceMode {
		p.mu.Unlock()
		return ErrNotOnDevice
	}
	if p.state.DeviceCurrentTrack == nil || p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.audio.Seek(max(position, 0)); err != nil {
		return rcerrors.Action("seek", err)
	}
	p.mu.Lock()
	p.state.CurrentTime = max(position, 0)
	p.publishLocked()
	p.mu.Unlock()
	return nil
}

func (p *Player) progressLoop(ctx context.Context) {
	ticker := time.NewTicker(p.progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sampleProgress()
		}
	}
}

func (p *Player) sampleProgress() {
	if p.audio == nil {
		return
	}
	p.mu.Lock()
	active := p.state.IsOnDeviceMode && p.state.DeviceIsPlaying
	p.mu.Unlock()
	if !active {
		return
	}

	pos, length := p.audio.Progress()

	p.mu.Lock()
	defer p.mu.Unlock()
	if pos == p.state.CurrentTime && length == p.state.Duration {
		return
	}
	p.state.CurrentTime = pos
	if length > 0 {
		p.state.Duration = length
	}
	p.publishLocked()
}
