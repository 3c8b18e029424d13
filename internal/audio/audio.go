// Package audio plays tracks on the local machine for on-device mode.
package audio

import (
	"context"
	"math"

	"github.com/tessro/riffcord/internal/core"
)

// Resolver maps a track to the location of a decodable MP3 stream: an
// http(s) URL, a file:// URL or a local path.
type Resolver func(ctx context.Context, t core.Track) (string, error)

// DirectResolver plays the track URL as-is.
func DirectResolver(_ context.Context, t core.Track) (string, error) {
	return t.URL, nil
}

// gain converts a 0-100 volume into a beep base-2 gain. silent is true at 0.
func gain(percent int) (volume float64, silent bool) {
	switch {
	case percent <= 0:
		return 0, true
	case percent >= 100:
		return 0, false
	}
	return math.Log2(float64(percent) / 100), false
}

// clampVolume keeps a volume within 0-100.
func clampVolume(percent int) int {
	return min(max(percent, 0), 100)
}
