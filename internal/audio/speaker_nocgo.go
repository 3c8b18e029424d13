//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
)

// Available indicates whether audio playback is supported in this build.
// Audio requires cgo for the native sound libraries.
const Available = false

// Speaker is a stand-in that refuses to play in builds without cgo.
type Speaker struct {
	logger zerolog.Logger
}

// NewSpeaker creates a speaker that cannot play.
func NewSpeaker(_ Resolver, logger zerolog.Logger) *Speaker {
	return &Speaker{logger: logger.With().Str("component", "audio").Logger()}
}

// Play always fails with ErrPlaybackBlocked.
func (s *Speaker) Play(_ context.Context, t core.Track) error {
	s.logger.Warn().Str("track", t.DisplayTitle()).Msg("audio output unavailable in this build")
	return fmt.Errorf("%w: built without audio support", rcerrors.ErrPlaybackBlocked)
}

func (s *Speaker) Pause() {}

func (s *Speaker) Stop() {}

func (s *Speaker) Seek(time.Duration) error { return nil }

func (s *Speaker) SetVolume(int) {}

func (s *Speaker) Progress() (time.Duration, time.Duration) { return 0, 0 }

func (s *Speaker) OnEnded(func()) {}
