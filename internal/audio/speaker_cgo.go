//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

// Available indicates whether audio playback is supported in this build.
const Available = true

// Speaker plays one track at a time through the default output device.
type Speaker struct {
	mu sync.Mutex

	resolve Resolver
	client  *http.Client
	logger  zerolog.Logger

	initialized bool
	sampleRate  beep.SampleRate

	key      string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	volume   int
	gen      int
	onEnded  func()
}

// NewSpeaker creates a speaker. A nil resolver plays track URLs directly.
func NewSpeaker(resolve Resolver, logger zerolog.Logger) *Speaker {
	if resolve == nil {
		resolve = DirectResolver
	}
	return &Speaker{
		resolve:    resolve,
		client:     &http.Client{Timeout: 2 * time.Minute},
		logger:     logger.With().Str("component", "audio").Logger(),
		sampleRate: beep.SampleRate(44100),
		volume:     100,
	}
}

func (s *Speaker) initLocked() error {
	if s.initialized {
		return nil
	}
	if err := speaker.Init(s.sampleRate, s.sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("%w: %w", rcerrors.ErrPlaybackBlocked, err)
	}
	s.initialized = true
	return nil
}

// Play starts t from the beginning, or resumes it if it is already loaded.
func (s *Speaker) Play(ctx context.Context, t core.Track) error {
	s.mu.Lock()
	if s.ctrl != nil && s.key == t.Key() {
		speaker.Lock()
		s.ctrl.Paused = false
		speaker.Unlock()
		s.mu.Unlock()
		return nil
	}
	if err := s.initLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	// Fetch without holding the lock.
	location, err := s.resolve(ctx, t)
	if err != nil {
		return err
	}
	data, err := open(ctx, s.client, location)
	if err != nil {
		return err
	}
	streamer, format, err := mp3.Decode(nopCloser{data})
	if err != nil {
		return fmt.Errorf("failed to decode %q: %w", t.DisplayTitle(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	gen := s.gen
	s.key = t.Key()
	s.streamer = streamer
	s.format = format

	resampled := beep.Resample(4, format.SampleRate, s.sampleRate, streamer)
	s.ctrl = &beep.Ctrl{Streamer: resampled}
	v, silent := gain(s.volume)
	s.vol = &effects.Volume{Streamer: s.ctrl, Base: 2, Volume: v, Silent: silent}

	speaker.Play(beep.Seq(s.vol, beep.Callback(func() {
		// Runs on the speaker goroutine; hand off to avoid deadlock.
		go s.ended(gen)
	})))

	s.logger.Debug().Str("track", t.DisplayTitle()).Msg("playing")
	return nil
}

func (s *Speaker) ended(gen int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	fn := s.onEnded
	s.stopLocked()
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Pause pauses playback, keeping the position.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = true
		speaker.Unlock()
	}
}

// Stop stops playback and unloads the track.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopLocked()
}

func (s *Speaker) stopLocked() {
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = true
		s.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if s.streamer != nil {
		_ = s.streamer.Close()
		s.streamer = nil
	}
	s.ctrl = nil
	s.vol = nil
	s.key = ""
}

// Seek moves to position d in the loaded track.
func (s *Speaker) Seek(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return nil
	}

	speaker.Lock()
	defer speaker.Unlock()
	n := s.format.SampleRate.N(d)
	n = min(max(n, 0), s.streamer.Len()-1)
	return s.streamer.Seek(n)
}

// SetVolume sets the output volume (0-100).
func (s *Speaker) SetVolume(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clampVolume(percent)
	if s.vol != nil {
		v, silent := gain(s.volume)
		speaker.Lock()
		s.vol.Volume = v
		s.vol.Silent = silent
		speaker.Unlock()
	}
}

// Progress returns the position and length of the loaded track.
func (s *Speaker) Progress() (time.Duration, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0, 0
	}
	speaker.Lock()
	pos, length := s.streamer.Position(), s.streamer.Len()
	speaker.Unlock()
	return s.format.SampleRate.D(pos), s.format.SampleRate.D(length)
}

// OnEnded registers fn to run when a track plays to the end.
func (s *Speaker) OnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}
