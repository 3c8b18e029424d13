// Package player is the playback state machine. In server mode it projects
// the guild's queue optimistically and reconciles it against versioned
// snapshots from the push channel. In on-device mode it drives local audio.
package player

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/core"
	"github.com/tessro/riffcord/internal/notify"
	"github.com/tessro/riffcord/internal/prefs"
	"github.com/tessro/riffcord/internal/realtime"
)

const (
	// DefaultPendingTimeout is how long an unconfirmed optimistic update may
	// block snapshot application.
	DefaultPendingTimeout = 10 * time.Second

	// DefaultProgressInterval is how often on-device progress is sampled.
	DefaultProgressInterval = 500 * time.Millisecond
)

// Backend issues playback commands for a server.
type Backend interface {
	Resume(ctx context.Context, guildID string) error
	Pause(ctx context.Context, guildID string) error
	Skip(ctx context.Context, guildID string) error
	AddToQueue(ctx context.Context, guildID, trackURL string, user *core.User) error
	ReorderQueue(ctx context.Context, guildID string, start, end int) error
	RemoveFromQueue(ctx context.Context, guildID string, index int) error
}

// AudioOutput is the local playback device used in on-device mode.
type AudioOutput interface {
	Play(ctx context.Context, t core.Track) error
	Pause()
	Stop()
	Seek(d time.Duration) error
	SetVolume(percent int)
	Progress() (position, length time.Duration)
	OnEnded(fn func())
}

// PrefsSaver persists player preferences.
type PrefsSaver interface {
	SavePlayer(prefs.Player) error
}

// ConnectFunc opens the push stream for a server.
type ConnectFunc func(guildID string, onSnapshot realtime.SnapshotFunc, cb realtime.Callbacks) io.Closer

// Options configures a Player.
type Options struct {
	Backend  Backend
	Audio    AudioOutput
	Connect  ConnectFunc
	ServerID func() string
	User     func() *core.User
	Notifier notify.Notifier
	Prefs    PrefsSaver
	Initial  prefs.Player

	// Debounce coalesces snapshot bursts. Zero applies every snapshot
	// immediately.
	Debounce         time.Duration
	PendingTimeout   time.Duration
	ProgressInterval time.Duration

	Logger zerolog.Logger
}

var _ core.Controller = (*Player)(nil)

// Player owns the playback state.
type Player struct {
	backend  Backend
	audio    AudioOutput
	connect  ConnectFunc
	serverID func() string
	user     func() *core.User
	notifier notify.Notifier
	prefs    PrefsSaver
	logger   zerolog.Logger

	debounce         time.Duration
	pendingTimeout   time.Duration
	progressInterval time.Duration

	mu    sync.Mutex
	state core.PlayerState

	handle  io.Closer
	guildID string
	connGen int

	debounceTimer *time.Timer
	debounceGen   int
	latest        *core.Snapshot

	pendingID    string
	pendingTimer *time.Timer
	ops          []*pendingOp

	stopProgress context.CancelFunc
	subs         map[chan core.PlayerState]struct{}
}

// New creates a player. Nothing connects until Start.
func New(opts Options) *Player {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}
	if opts.PendingTimeout <= 0 {
		opts.PendingTimeout = DefaultPendingTimeout
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.ServerID == nil {
		opts.ServerID = func() string { return "" }
	}
	if opts.User == nil {
		opts.User = func() *core.User { return nil }
	}

	return &Player{
		backend:          opts.Backend,
		audio:            opts.Audio,
		connect:          opts.Connect,
		serverID:         opts.ServerID,
		user:             opts.User,
		notifier:         opts.Notifier,
		prefs:            opts.Prefs,
		logger:           opts.Logger.With().Str("component", "player").Logger(),
		debounce:         opts.Debounce,
		pendingTimeout:   opts.PendingTimeout,
		progressInterval: opts.ProgressInterval,
		state: core.PlayerState{
			IsOnDeviceMode: opts.Initial.IsOnDeviceMode,
			Volume:         opts.Initial.Volume,
			Status:         core.StatusDisconnected,
		},
		subs: make(map[chan core.PlayerState]struct{}),
	}
}

// State returns a copy of the current state.
func (p *Player) State() core.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Subscribe returns a channel that always holds the latest state. Slow
// readers skip intermediate states. Call the returned func to unsubscribe.
func (p *Player) Subscribe() (<-chan core.PlayerState, func()) {
	ch := make(chan core.PlayerState, 1)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	ch <- p.state.Clone()
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
	}
}

func (p *Player) publishLocked() {
	if len(p.subs) == 0 {
		return
	}
	st := p.state.Clone()
	for ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// Start connects the push channel for the active server and begins
// sampling on-device progress until ctx ends or Stop is called.
func (p *Player) Start(ctx context.Context) {
	p.mu.Lock()
	if p.stopProgress != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.stopProgress = cancel
	p.mu.Unlock()

	if p.audio != nil {
		p.audio.OnEnded(p.trackEnded)
		p.audio.SetVolume(p.State().Volume)
	}
	go p.progressLoop(ctx)

	p.Reconnect(p.serverID())
}

// Reconnect switches the push channel to guildID. Server-mode state is
// reset; an empty id leaves the player disconnected.
func (p *Player) Reconnect(guildID string) {
	p.mu.Lock()
	old := p.handle
	p.handle = nil
	p.guildID = guildID
	p.connGen++
	gen := p.connGen
	p.resetSyncLocked()
	if guildID == "" {
		p.state.Status = core.StatusDisconnected
	} else {
		p.state.Status = core.StatusConnecting
	}
	p.publishLocked()
	p.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if guildID == "" || p.connect == nil {
		return
	}

	p.logger.Info().Str("guild", guildID).Msg("connecting push channel")
	h := p.connect(guildID, p.snapshotHandler(gen), p.callbacks(gen))

	p.mu.Lock()
	if gen != p.connGen {
		p.mu.Unlock()
		if h != nil {
			_ = h.Close()
		}
		return
	}
	p.handle = h
	p.mu.Unlock()
}

// resetSyncLocked forgets everything learned from the previous server.
func (p *Player) resetSyncLocked() {
	p.stopDebounceLocked()
	p.clearPendingLocked()
	p.ops = nil
	p.state.CurrentTrack = nil
	p.state.Queue = nil
	p.state.IsPlaying = false
	p.state.History = nil
	p.state.LastSyncVersion = 0
	p.state.LastSyncTimestamp = time.Time{}
}

func (p *Player) callbacks(gen int) realtime.Callbacks {
	return realtime.Callbacks{
		OnStatus: func(s core.ConnectionStatus) {
			p.mu.Lock()
			defer p.mu.Unlock()
			if gen != p.connGen {
				return
			}
			p.state.Status = s
			p.publishLocked()
		},
		OnClose: func() {
			p.logger.Debug().Msg("push channel dropped")
		},
		OnError: func(err error) {
			p.mu.Lock()
			live := gen == p.connGen
			p.mu.Unlock()
			if !live {
				return
			}
			p.logger.Error().Err(err).Msg("push channel failed")
			if realtime.IsExhausted(err) {
				p.notifier.Notify(notify.LevelError, "Lost connection to the bot server")
			} else {
				p.notifier.Notify(notify.LevelError, "Could not open the connection to the bot server")
			}
		},
	}
}

// Stop closes the push channel and cancels all timers.
func (p *Player) Stop() {
	p.mu.Lock()
	old := p.handle
	p.handle = nil
	p.connGen++
	p.stopDebounceLocked()
	p.clearPendingLocked()
	p.ops = nil
	if p.stopProgress != nil {
		p.stopProgress()
		p.stopProgress = nil
	}
	p.state.Status = core.StatusDisconnected
	p.publishLocked()
	p.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

// Dispose stops the player, silences audio and closes all subscriptions.
func (p *Player) Dispose() {
	p.Stop()
	if p.audio != nil {
		p.audio.Stop()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		delete(p.subs, ch)
		close(ch)
	}
}

func (p *Player) persistLocked() {
	if p.prefs == nil {
		return
	}
	rec := prefs.Player{Volume: p.state.Volume, IsOnDeviceMode: p.state.IsOnDeviceMode}
	if err := p.prefs.SavePlayer(rec); err != nil {
		p.logger.Warn().Err(err).Msg("failed to save player preferences")
	}
}
