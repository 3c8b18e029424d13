package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/riffcord/internal/audio"
	"github.com/tessro/riffcord/internal/auth"
	"github.com/tessro/riffcord/internal/backend"
	"github.com/tessro/riffcord/internal/core"
	"github.com/tessro/riffcord/internal/guild"
	"github.com/tessro/riffcord/internal/notify"
	"github.com/tessro/riffcord/internal/player"
	"github.com/tessro/riffcord/internal/prefs"
	"github.com/tessro/riffcord/internal/realtime"
)

const (
	// syncTimeout bounds the wait for the first snapshot in one-shot commands.
	syncTimeout = 5 * time.Second

	// settleTimeout bounds the wait for an optimistic update to be confirmed.
	settleTimeout = 3 * time.Second
)

// client bundles the collaborators a command works with.
type client struct {
	backend *backend.Client
	auth    *auth.Manager
	prefs   *prefs.Store
	guild   *guild.Store
	player  *player.Player
	channel *realtime.Channel
	logger  zerolog.Logger

	interactive bool
}

type clientOptions struct {
	// interactive keeps the persisted playback mode. One-shot commands
	// always drive the server because local audio dies with the process.
	interactive bool

	// notes receives user-facing notifications in addition to the log.
	notes notify.Notifier
}

func authConfig() *auth.Config {
	authCfg := auth.NewConfig(cfg.Discord.ClientID)
	if cfg.Discord.RedirectURI != "" {
		authCfg.RedirectURI = cfg.Discord.RedirectURI
	}
	return authCfg
}

// newAuth builds the session manager from the loaded config.
func newAuth() (*auth.Manager, error) {
	storage, err := auth.NewSessionStorage("")
	if err != nil {
		return nil, err
	}

	m := auth.NewManager(authConfig(), auth.NewClient(), storage, logger)
	if err := m.Load(); err != nil {
		logger.Warn().Err(err).Msg("failed to load session")
	}
	return m, nil
}

// openPrefs opens the preferences store and loads it. Before anything has
// been saved the configured device volume applies.
func openPrefs() (*prefs.Store, prefs.Prefs, error) {
	store, err := prefs.NewStore(cfg.State.Path)
	if err != nil {
		return nil, prefs.Prefs{}, err
	}
	saved, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load preferences, using defaults")
		saved = prefs.Defaults()
	}
	if _, err := os.Stat(store.Path()); os.IsNotExist(err) {
		saved.Player.Volume = cfg.Device.Volume
	}
	return store, saved, nil
}

// newClient wires the backend, guild store and player together.
func newClient(opts clientOptions) (*client, error) {
	sessions, err := newAuth()
	if err != nil {
		return nil, err
	}

	api := backend.New(cfg.Backend)
	api.SetTokenSource(sessions)
	api.SetLogger(logger)

	store, saved, err := openPrefs()
	if err != nil {
		return nil, err
	}
	if !opts.interactive {
		saved.Player.IsOnDeviceMode = false
	}

	notifier := notify.Multi{notify.NewLog(logger)}
	if cfg.Notify.Desktop {
		notifier = append(notifier, notify.NewDesktop("Riffcord", logger))
	}
	if opts.notes != nil {
		notifier = append(notifier, opts.notes)
	}

	guilds := guild.New(guild.Options{
		Backend:         api,
		Prefs:           store,
		Notifier:        notifier,
		Initial:         saved.Guild,
		PollInterval:    cfg.Guild.PollInterval(),
		ServersThrottle: cfg.Guild.ServersThrottle(),
		Logger:          logger,
	})

	channel := realtime.New(realtime.Options{
		BaseURL: cfg.Backend.BaseURL,
		Backoff: realtime.BackoffFromConfig(cfg.Sync),
		Logger:  logger,
	})
	connect := func(guildID string, onSnapshot realtime.SnapshotFunc, cb realtime.Callbacks) io.Closer {
		return channel.Open(guildID, onSnapshot, cb)
	}

	opt := player.Options{
		Backend:        api,
		Connect:        connect,
		ServerID:       guilds.ActiveServerID,
		User:           sessions.User,
		Notifier:       notifier,
		Prefs:          store,
		Initial:        saved.Player,
		Debounce:       cfg.Sync.Debounce(),
		PendingTimeout: cfg.Sync.PendingTimeout(),
		Logger:         logger,
	}
	if opts.interactive {
		opt.Audio = audio.NewSpeaker(audio.DirectResolver, logger)
	}
	p := player.New(opt)

	guilds.OnServerChange(p.Reconnect)

	return &client{
		backend: api,
		auth:    sessions,
		prefs:   store,
		guild:   guilds,
		player:  p,
		channel: channel,
		logger:  logger,

		interactive: opts.interactive,
	}, nil
}

// start loads the guild context and connects the player.
func (c *client) start(ctx context.Context) {
	if err := c.guild.Start(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to load guild context")
	}
	c.player.Start(ctx)
}

// follow applies preference changes written by other riffcord processes
// until ctx ends.
func (c *client) follow(ctx context.Context) {
	go func() {
		err := c.prefs.Watch(ctx, c.logger, func(p prefs.Prefs) {
			if p.Guild.ActiveServerID != c.guild.ActiveServerID() {
				if err := c.guild.SetActiveServerID(ctx, p.Guild.ActiveServerID); err != nil {
					c.logger.Warn().Err(err).Msg("failed to follow server change")
				}
			}
			if !c.interactive {
				return
			}
			// Only differing values are applied; the player writes back.
			st := c.player.State()
			if p.Player.Volume != st.Volume {
				c.player.SetVolume(p.Player.Volume)
			}
			c.player.SetOnDeviceMode(p.Player.IsOnDeviceMode)
		})
		if err != nil {
			c.logger.Warn().Err(err).Msg("preferences watcher stopped")
		}
	}()
}

func (c *client) close() {
	c.player.Dispose()
	c.guild.Close()
	_ = c.channel.Close()
}

// awaitSync waits for the first snapshot of the active server. It returns
// early when there is nothing to sync with.
func (c *client) awaitSync(ctx context.Context) core.PlayerState {
	return c.await(ctx, syncTimeout, func(st core.PlayerState) bool {
		return st.LastSyncVersion > 0 || st.Status == core.StatusDisconnected || st.Status == core.StatusError
	})
}

// awaitSettled waits until the last optimistic update is confirmed or
// rolled back.
func (c *client) awaitSettled(ctx context.Context) core.PlayerState {
	return c.await(ctx, settleTimeout, func(st core.PlayerState) bool {
		return !st.HasPendingOperation
	})
}

func (c *client) await(ctx context.Context, timeout time.Duration, done func(core.PlayerState) bool) core.PlayerState {
	states, unsubscribe := c.player.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last core.PlayerState
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return last
			}
			last = st
			if done(st) {
				return st
			}
		case <-ctx.Done():
			return c.player.State()
		}
	}
}

// withClient runs fn against a started one-shot client.
func withClient(ctx context.Context, fn func(ctx context.Context, c *client) error) error {
	c, err := newClient(clientOptions{})
	if err != nil {
		return err
	}
	defer c.close()

	c.start(ctx)
	return fn(ctx, c)
}
