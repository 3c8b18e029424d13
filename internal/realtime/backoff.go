package realtime

import (
	"math"
	"time"

	"github.com/tessro/riffcord/internal/config"
)

// Backoff is the reconnect schedule: Base * Factor^attempt, capped at Max,
// for at most MaxAttempts reconnects.
type Backoff struct {
	Base        time.Duration
	Factor      float64
	Max         time.Duration
	MaxAttempts int
}

// DefaultBackoff returns the schedule used when nothing is configured.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:        time.Second,
		Factor:      1.5,
		Max:         30 * time.Second,
		MaxAttempts: 5,
	}
}

// BackoffFromConfig builds a schedule from the sync settings.
func BackoffFromConfig(cfg config.SyncConfig) Backoff {
	return Backoff{
		Base:        cfg.ReconnectBase(),
		Factor:      cfg.ReconnectFactor,
		Max:         cfg.ReconnectMax(),
		MaxAttempts: cfg.ReconnectMaxAttempts,
	}
}

// Delay returns the wait before reconnect attempt n (0-based).
func (b Backoff) Delay(n int) time.Duration {
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(b.Base) * math.Pow(factor, float64(n)))
	if b.Max > 0 && (d > b.Max || d < 0) {
		return b.Max
	}
	return d
}
