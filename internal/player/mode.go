package player

import (
	"github.com/tessro/riffcord/internal/notify"
)

// SetOnDeviceMode switches between server playback and local playback.
// Leaving on-device mode stops local audio and clears the device queue.
// Either direction hides the player view.
func (p *Player) SetOnDeviceMode(on bool) {
	p.mu.Lock()
	if p.state.IsOnDeviceMode == on {
		p.mu.Unlock()
		return
	}
	leavingDevice := p.state.IsOnDeviceMode && !on
	if leavingDevice {
		p.state.DeviceCurrentTrack = nil
		p.state.DeviceQueue = nil
		p.state.DeviceIsPlaying = false
		p.state.CurrentTime = 0
		p.state.Duration = 0
	}
	p.state.IsOnDeviceMode = on
	p.state.PlayerVisible = false
	p.persistLocked()
	p.publishLocked()
	p.mu.Unlock()

	if leavingDevice && p.audio != nil {
		p.audio.Stop()
	}

	p.logger.Info().Bool("on_device", on).Msg("playback mode changed")
	if on {
		p.notifier.Notify(notify.LevelInfo, "Switched to on-device playback")
	} else {
		p.notifier.Notify(notify.LevelInfo, "Switched to server playback")
	}
}

// SetVolume sets the local output volume (0-100) and remembers it.
func (p *Player) SetVolume(percent int) {
	percent = min(max(percent, 0), 100)

	p.mu.Lock()
	p.state.Volume = percent
	p.persistLocked()
	p.publishLocked()
	p.mu.Unlock()

	if p.audio != nil {
		p.audio.SetVolume(percent)
	}
}
