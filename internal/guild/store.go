// Package guild tracks which Discord server and voice channel the client is
// working against, and whether the bot is connected there.
package guild

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
	"github.com/tessro/riffcord/internal/notify"
	"github.com/tessro/riffcord/internal/prefs"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultServersThrottle = 15 * time.Second
)

// Backend is the subset of the bot API the store needs.
type Backend interface {
	VoiceChannels(ctx context.Context, guildID string) ([]core.VoiceChannel, error)
	BotVoiceStatus(ctx context.Context, guildID string) (core.BotVoiceStatus, error)
	JoinChannel(ctx context.Context, guildID, channelID string) error
	Disconnect(ctx context.Context, guildID string) error
	Servers(ctx context.Context) ([]core.Server, error)
}

// PrefsSaver persists the guild selection.
type PrefsSaver interface {
	SaveGuild(prefs.Guild) error
}

// Options configures a Store.
type Options struct {
	Backend         Backend
	Prefs           PrefsSaver
	Notifier        notify.Notifier
	Initial         prefs.Guild
	PollInterval    time.Duration
	ServersThrottle time.Duration
	Logger          zerolog.Logger
}

// Store owns the guild context. All methods are safe for concurrent use.
type Store struct {
	backend  Backend
	prefs    PrefsSaver
	notifier notify.Notifier
	logger   zerolog.Logger

	pollInterval time.Duration
	throttle     time.Duration

	root   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      core.GuildState
	gen        int
	stopPoll   context.CancelFunc
	fetchedAt  time.Time
	fetched    bool
	listeners  []func(string)
	subs       map[chan core.GuildState]struct{}
	serverCall singleflight.Group
}

// New creates a store seeded with the persisted selection. Nothing is
// fetched until Start.
func New(opts Options) *Store {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ServersThrottle <= 0 {
		opts.ServersThrottle = DefaultServersThrottle
	}
	root, cancel := context.WithCancel(context.Background())
	return &Store{
		backend:      opts.Backend,
		prefs:        opts.Prefs,
		notifier:     opts.Notifier,
		logger:       opts.Logger.With().Str("component", "guild").Logger(),
		pollInterval: opts.PollInterval,
		throttle:     opts.ServersThrottle,
		root:         root,
		cancel:       cancel,
		state: core.GuildState{
			ActiveServerID:  opts.Initial.ActiveServerID,
			ActiveChannelID: opts.Initial.ActiveChannelID,
		},
		subs: make(map[chan core.GuildState]struct{}),
	}
}

// ActiveServerID returns the selected server, or "" when none is selected.
// The player reads the active context through this accessor.
func (s *Store) ActiveServerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveServerID
}

// State returns a copy of the current state.
func (s *Store) State() core.GuildState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// Subscribe returns a channel that always holds the latest state. Call the
// returned func to unsubscribe.
func (s *Store) Subscribe() (<-chan core.GuildState, func()) {
	ch := make(chan core.GuildState, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- cloneState(s.state)
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// OnServerChange registers fn to be called with the new id whenever the
// active server changes.
func (s *Store) OnServerChange(fn func(id string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	st := cloneState(s.state)
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// Start loads channels and bot status for the persisted server and begins
// polling. Listeners are not notified.
func (s *Store) Start(ctx context.Context) error {
	id := s.ActiveServerID()
	if id == "" {
		return nil
	}
	gen := s.activate(id, false)
	return s.refresh(ctx, id, gen)
}

// SetActiveServerID switches the active server. An empty id clears the
// selection. The previous bot status poll is cancelled, channel state is
// cleared and the selection is persisted; for a non-empty id the voice
// channels and bot status are then fetched and polling restarts.
func (s *Store) SetActiveServerID(ctx context.Context, id string) error {
	if id != "" {
		if _, err := snowflake.Parse(id); err != nil {
			return fmt.Errorf("invalid server id %q: %w", id, err)
		}
	}

	gen := s.activate(id, true)
	if id == "" {
		return nil
	}
	return s.refresh(ctx, id, gen)
}

// activate installs id as the active server and returns its generation.
func (s *Store) activate(id string, announce bool) int {
	s.mu.Lock()
	if s.stopPoll != nil {
		s.stopPoll()
		s.stopPoll = nil
	}
	s.gen++
	gen := s.gen

	changed := s.state.ActiveServerID != id
	s.state.ActiveServerID = id
	if changed {
		s.state.ActiveChannelID = ""
	}
	s.state.VoiceChannels = nil
	s.state.BotChannelID = ""
	s.state.IsBotConnected = false
	s.state.Err = ""
	s.persistLocked()
	s.publishLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.Info().Str("guild", id).Msg("active server changed")
	if announce && changed {
		for _, fn := range listeners {
			fn(id)
		}
	}
	return gen
}

// refresh fetches channels and bot status for id, then starts the poll.
func (s *Store) refresh(ctx context.Context, id string, gen int) error {
	s.setLoading(gen, true)

	var (
		channels []core.VoiceChannel
		status   core.BotVoiceStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		channels, err = s.backend.VoiceChannels(gctx, id)
		if err != nil {
			return fmt.Errorf("voice channels: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		status, err = s.backend.BotVoiceStatus(gctx, id)
		if err != nil {
			return fmt.Errorf("bot voice status: %w", err)
		}
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	s.state.Loading = false
	if err != nil {
		s.state.Err = err.Error()
	} else {
		s.state.VoiceChannels = channels
		s.applyStatusLocked(status)
	}
	s.startPollLocked(id, gen)
	s.publishLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("guild", id).Msg("failed to load server")
		s.notifier.Notify(notify.LevelError, "Could not load voice channels")
	}
	return err
}

func (s *Store) setLoading(gen int, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.state.Loading = loading
		s.publishLocked()
	}
}

func (s *Store) applyStatusLocked(status core.BotVoiceStatus) {
	s.state.IsBotConnected = status.Connected
	s.state.BotChannelID = status.ChannelID
}

func (s *Store) startPollLocked(id string, gen int) {
	ctx, cancel := context.WithCancel(s.root)
	s.stopPoll = cancel
	go s.poll(ctx, id, gen)
}

// poll refreshes bot voice status until cancelled or the active server
// changes.
func (s *Store) poll(ctx context.Context, id string, gen int) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		stale := s.gen != gen
		s.mu.Unlock()
		if stale {
			return
		}

		status, err := s.backend.BotVoiceStatus(ctx, id)
		if err != nil {
			s.logger.Debug().Err(err).Str("guild", id).Msg("bot status poll failed")
			continue
		}

		s.mu.Lock()
		if s.gen == gen && (status.Connected != s.state.IsBotConnected || status.ChannelID != s.state.BotChannelID) {
			s.applyStatusLocked(status)
			s.publishLocked()
		}
		s.mu.Unlock()
	}
}

// FetchMutualServers lists the user's servers, split into servers the bot
// is in and servers the user could invite it to. Concurrent callers share
// one request, and results younger than the throttle interval are reused
// unless force is set.
func (s *Store) FetchMutualServers(ctx context.Context, force bool) ([]core.Server, error) {
	s.mu.Lock()
	if !force && s.fetched && time.Since(s.fetchedAt) < s.throttle {
		servers := slices.Clone(s.state.Servers)
		s.mu.Unlock()
		return servers, nil
	}
	s.state.Loading = true
	s.publishLocked()
	s.mu.Unlock()

	v, err, shared := s.serverCall.Do("servers", func() (any, error) {
		return s.backend.Servers(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.state.Err = err.Error()
		s.publishLocked()
		return nil, fmt.Errorf("fetching servers: %w", err)
	}

	all := v.([]core.Server)
	mutual, invitable := Classify(all)
	s.state.Servers = mutual
	s.state.InvitableServers = invitable
	s.state.Err = ""
	s.fetched = true
	s.fetchedAt = time.Now()
	s.publishLocked()

	s.logger.Debug().
		Int("mutual", len(mutual)).
		Int("invitable", len(invitable)).
		Bool("shared", shared).
		Msg("servers fetched")
	return slices.Clone(mutual), nil
}

// Classify splits servers into those the bot is in and those the user could
// invite it to (manage-server permission, bot absent).
func Classify(servers []core.Server) (mutual, invitable []core.Server) {
	mutual = lo.Filter(servers, func(s core.Server, _ int) bool {
		return s.BotPresent
	})
	invitable = lo.Filter(servers, func(s core.Server, _ int) bool {
		return !s.BotPresent && s.CanManage()
	})
	return mutual, invitable
}

// JoinChannel asks the bot to join channelID in the active server.
func (s *Store) JoinChannel(ctx context.Context, channelID string) error {
	id := s.ActiveServerID()
	if id == "" {
		s.notifier.Notify(notify.LevelError, "Select a server first")
		return rcerrors.ErrNoActiveServer
	}
	if _, err := snowflake.Parse(channelID); err != nil {
		return fmt.Errorf("invalid channel id %q: %w", channelID, err)
	}

	if err := s.backend.JoinChannel(ctx, id, channelID); err != nil {
		aerr := &rcerrors.ActionError{Action: "join", Subject: s.channelName(channelID), Err: err}
		s.notifier.Notify(notify.LevelError, aerr.Message())
		return aerr
	}

	s.mu.Lock()
	if s.state.ActiveServerID == id {
		s.state.ActiveChannelID = channelID
		s.state.BotChannelID = channelID
		s.state.IsBotConnected = true
		s.persistLocked()
		s.publishLocked()
	}
	s.mu.Unlock()

	s.logger.Info().Str("guild", id).Str("channel", channelID).Msg("joined voice channel")
	return nil
}

// Leave disconnects the bot from voice in the active server.
func (s *Store) Leave(ctx context.Context) error {
	id := s.ActiveServerID()
	if id == "" {
		return rcerrors.ErrNoActiveServer
	}
	if err := s.backend.Disconnect(ctx, id); err != nil {
		aerr := &rcerrors.ActionError{Action: "leave voice", Err: err}
		s.notifier.Notify(notify.LevelError, aerr.Message())
		return aerr
	}

	s.mu.Lock()
	if s.state.ActiveServerID == id {
		s.state.ActiveChannelID = ""
		s.state.BotChannelID = ""
		s.state.IsBotConnected = false
		s.persistLocked()
		s.publishLocked()
	}
	s.mu.Unlock()
	return nil
}

// AutoConnect rejoins the remembered voice channel once per session when the
// bot is not already connected somewhere in the active server.
func (s *Store) AutoConnect(ctx context.Context) error {
	s.mu.Lock()
	if s.state.AutoConnectChecked {
		s.mu.Unlock()
		return nil
	}
	s.state.AutoConnectChecked = true
	id, channelID := s.state.ActiveServerID, s.state.ActiveChannelID
	s.publishLocked()
	s.mu.Unlock()

	if id == "" || channelID == "" {
		return nil
	}

	status, err := s.backend.BotVoiceStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("checking bot status: %w", err)
	}
	if status.Connected {
		s.mu.Lock()
		if s.state.ActiveServerID == id {
			s.applyStatusLocked(status)
			s.publishLocked()
		}
		s.mu.Unlock()
		return nil
	}

	s.logger.Info().Str("guild", id).Str("channel", channelID).Msg("auto-connecting")
	return s.JoinChannel(ctx, channelID)
}

// Close stops background polling.
func (s *Store) Close() {
	s.cancel()
	s.mu.Lock()
	s.stopPoll = nil
	s.mu.Unlock()
}

func (s *Store) channelName(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := lo.Find(s.state.VoiceChannels, func(c core.VoiceChannel) bool { return c.ID == id }); ok {
		return ch.Name
	}
	return ""
}

func (s *Store) persistLocked() {
	if s.prefs == nil {
		return
	}
	sel := prefs.Guild{
		ActiveServerID:  s.state.ActiveServerID,
		ActiveChannelID: s.state.ActiveChannelID,
	}
	if err := s.prefs.SaveGuild(sel); err != nil {
		s.logger.Warn().Err(err).Msg("failed to save server selection")
	}
}

func cloneState(s core.GuildState) core.GuildState {
	s.Servers = slices.Clone(s.Servers)
	s.InvitableServers = slices.Clone(s.InvitableServers)
	s.VoiceChannels = slices.Clone(s.VoiceChannels)
	return s
}
