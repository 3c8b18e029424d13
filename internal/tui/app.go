package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/tessro/riffcord/internal/core"
	rcerrors "github.com/tessro/riffcord/internal/errors"
	"github.com/tessro/riffcord/internal/notify"
	"github.com/tessro/riffcord/internal/tui/components"
	"github.com/tessro/riffcord/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelNowPlaying Panel = iota
	PanelQueue
	PanelChannels
	PanelHistory
	panelCount
)

const (
	searchDebounce = 300 * time.Millisecond
	actionTimeout  = 15 * time.Second
	noteLifetime   = 5 * time.Second
	seekStep       = 10 * time.Second
	volumeStep     = 5
	maxHistory     = 50
)

// Player is the playback surface the UI drives.
type Player interface {
	core.Controller
	Subscribe() (<-chan core.PlayerState, func())
}

// Guild is the guild context surface the UI drives.
type Guild interface {
	State() core.GuildState
	Subscribe() (<-chan core.GuildState, func())
	SetActiveServerID(ctx context.Context, id string) error
	FetchMutualServers(ctx context.Context, force bool) ([]core.Server, error)
	JoinChannel(ctx context.Context, channelID string) error
	Leave(ctx context.Context) error
}

// Searcher finds tracks to queue.
type Searcher interface {
	Search(ctx context.Context, query string) ([]core.Track, error)
}

// Notifier forwards notifications into the running UI. Messages sent while
// the UI is busy are dropped.
type Notifier struct {
	ch chan notify.Message
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan notify.Message, 8)}
}

// Notify queues a message for display.
func (n *Notifier) Notify(level notify.Level, message string) {
	select {
	case n.ch <- notify.Message{Level: level, Text: message}:
	default:
	}
}

// App holds the collaborators of the TUI
type App struct {
	Player      Player
	Guild       Guild
	Search      Searcher
	Notes       *Notifier
	RefreshRate time.Duration
}

// Model is the main TUI model
type Model struct {
	app          *App
	width        int
	height       int
	focusedPanel Panel

	// State
	state   *core.PlayerState
	guild   *core.GuildState
	history []components.HistoryEntry

	states      <-chan core.PlayerState
	guildStates <-chan core.GuildState

	// Components
	nowPlaying   *components.NowPlaying
	queueView    *components.Queue
	channelsView *components.Channels
	historyView  *components.History

	// Overlays
	showHelp bool

	// Server picker
	showServers   bool
	serverCursor  int
	loadingServer bool

	// Search state
	showSearch    bool
	searchInput   textinput.Model
	searchResults []core.Track
	searchCursor  int
	searching     bool
	lastQuery     string
	searchErr     error

	// Status line
	note       *notify.Message
	noteExpiry time.Time

	quitting bool
}

// NewModel creates a new TUI model. states and guildStates are the
// subscriptions the model reads from.
func NewModel(app *App, states <-chan core.PlayerState, guildStates <-chan core.GuildState) Model {
	ti := textinput.New()
	ti.Placeholder = "Search or paste a URL..."
	ti.CharLimit = 200
	ti.Width = 50

	if app.RefreshRate <= 0 {
		app.RefreshRate = time.Second
	}

	return Model{
		app:          app,
		focusedPanel: PanelNowPlaying,
		states:       states,
		guildStates:  guildStates,
		nowPlaying:   components.NewNowPlaying(),
		queueView:    components.NewQueue(),
		channelsView: components.NewChannels(),
		historyView:  components.NewHistory(),
		searchInput:  ti,
	}
}

// Messages
type tickMsg time.Time
type stateMsg core.PlayerState
type guildMsg core.GuildState
type noteMsg notify.Message
type errMsg error
type serversMsg struct{ err error }
type closedMsg struct{}

// Search messages
type searchDebounceMsg struct{ query string }
type searchResultsMsg struct {
	results []core.Track
	err     error
}

// Commands
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.app.RefreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForState(ch <-chan core.PlayerState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

func waitForGuild(ch <-chan core.GuildState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return guildMsg(st)
	}
}

func waitForNote(n *Notifier) tea.Cmd {
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		return noteMsg(<-n.ch)
	}
}

// action runs fn in the background and reports failures that the player
// did not already surface as a notification.
func action(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := fn(ctx); err != nil && !notified(err) {
			return errMsg(err)
		}
		return nil
	}
}

func notified(err error) bool {
	var aerr *rcerrors.ActionError
	return errors.As(err, &aerr) ||
		errors.Is(err, rcerrors.ErrNoActiveServer) ||
		errors.Is(err, rcerrors.ErrNoUser) ||
		errors.Is(err, rcerrors.ErrPlaybackBlocked)
}

func (m Model) fetchServers(force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := m.app.Guild.FetchMutualServers(ctx, force)
		return serversMsg{err: err}
	}
}

func (m Model) doSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if query == "" || isURL(query) {
			return searchResultsMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		results, err := m.app.Search.Search(ctx, query)
		return searchResultsMsg{results: results, err: err}
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		waitForState(m.states),
		waitForGuild(m.guildStates),
		waitForNote(m.app.Notes),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.note != nil && time.Now().After(m.noteExpiry) {
			m.note = nil
		}
		return m, m.tick()

	case stateMsg:
		st := core.PlayerState(msg)
		m.trackHistory(st)
		m.state = &st
		return m, waitForState(m.states)

	case guildMsg:
		st := core.GuildState(msg)
		m.guild = &st
		return m, waitForGuild(m.guildStates)

	case noteMsg:
		m.setNote(notify.Message(msg))
		return m, waitForNote(m.app.Notes)

	case errMsg:
		m.setNote(notify.Message{Level: notify.LevelError, Text: msg.Error()})
		return m, nil

	case serversMsg:
		m.loadingServer = false
		if msg.err != nil {
			m.setNote(notify.Message{Level: notify.LevelError, Text: msg.err.Error()})
		}
		return m, nil

	case closedMsg:
		return m, nil

	case searchDebounceMsg:
		if msg.query == m.searchInput.Value() && msg.query != m.lastQuery {
			m.lastQuery = msg.query
			m.searching = true
			return m, m.doSearch(msg.query)
		}

	case searchResultsMsg:
		m.searching = false
		m.searchResults = msg.results
		m.searchErr = msg.err
		m.searchCursor = 0
		return m, nil
	}

	// Forward other messages to textinput when search is active
	if m.showSearch {
		var inputCmd tea.Cmd
		m.searchInput, inputCmd = m.searchInput.Update(msg)
		return m, inputCmd
	}

	return m, nil
}

func (m *Model) setNote(n notify.Message) {
	m.note = &n
	m.noteExpiry = time.Now().Add(noteLifetime)
}

// trackHistory records the outgoing track when the active track changes.
func (m *Model) trackHistory(next core.PlayerState) {
	if m.state == nil || m.state.IsOnDeviceMode != next.IsOnDeviceMode {
		return
	}
	prev, prevQueue, _ := m.state.Active()
	cur, _, _ := next.Active()
	if prev == nil || (cur != nil && cur.Key() == prev.Key()) {
		return
	}

	// Progress, and so an early skip, is only observable for local playback.
	skipped := m.state.IsOnDeviceMode && m.state.ProgressPercent() < 95 &&
		cur != nil && len(prevQueue) > 0 && prevQueue[0].Key() == cur.Key()

	entry := components.HistoryEntry{Track: *prev, PlayedAt: time.Now(), Skipped: skipped}
	m.history = append([]components.HistoryEntry{entry}, m.history...)
	if len(m.history) > maxHistory {
		m.history = m.history[:maxHistory]
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys (always work)
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	if m.showSearch {
		return m.handleSearchKeyPress(msg)
	}

	if m.showServers {
		return m.handleServerKeyPress(msg)
	}

	// Normal mode
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "/":
		m.showSearch = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.searchResults = nil
		m.searchCursor = 0
		m.lastQuery = ""
		m.searchErr = nil
		return m, textinput.Blink

	case "s":
		m.showServers = true
		m.serverCursor = 0
		m.loadingServer = true
		return m, m.fetchServers(false)

	case "tab":
		m.focusedPanel = (m.focusedPanel + 1) % panelCount
		return m, nil

	case "shift+tab":
		m.focusedPanel = (m.focusedPanel + panelCount - 1) % panelCount
		return m, nil
	}

	// Playback controls
	p := m.app.Player
	switch msg.String() {
	case " ":
		return m, m.togglePlayPause()
	case "n":
		return m, action(p.Skip)
	case "p":
		return m, action(p.Previous)
	case "m":
		on := m.state == nil || !m.state.IsOnDeviceMode
		return m, func() tea.Msg {
			p.SetOnDeviceMode(on)
			return nil
		}
	case "+", "=":
		return m, m.changeVolume(volumeStep)
	case "-":
		return m, m.changeVolume(-volumeStep)
	case "left", "h":
		if m.focusedPanel == PanelNowPlaying {
			return m, m.seek(-seekStep)
		}
	case "right", "l":
		if m.focusedPanel == PanelNowPlaying {
			return m, m.seek(seekStep)
		}
	case "r":
		return m, m.fetchServers(true)
	}

	switch m.focusedPanel {
	case PanelQueue:
		return m.handleQueueKeyPress(msg)
	case PanelChannels:
		return m.handleChannelKeyPress(msg)
	}

	return m, nil
}

func (m Model) activeQueue() []core.Track {
	if m.state == nil {
		return nil
	}
	_, q, _ := m.state.Active()
	return q
}

func (m Model) handleQueueKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	queue := m.activeQueue()
	sel := m.queueView.Selected()
	p := m.app.Player

	switch msg.String() {
	case "j", "down":
		m.queueView.SelectNext(len(queue))
	case "k", "up":
		m.queueView.SelectPrev()
	case "J", "shift+down":
		if sel+1 < len(queue) {
			m.queueView.Select(sel + 1)
			return m, action(func(ctx context.Context) error { return p.ReorderQueue(ctx, sel, sel+1) })
		}
	case "K", "shift+up":
		if sel > 0 && sel < len(queue) {
			m.queueView.Select(sel - 1)
			return m, action(func(ctx context.Context) error { return p.ReorderQueue(ctx, sel, sel-1) })
		}
	case "x", "delete", "backspace":
		if sel < len(queue) {
			return m, action(func(ctx context.Context) error { return p.RemoveFromQueue(ctx, sel) })
		}
	}
	return m, nil
}

func (m Model) handleChannelKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var channels []core.VoiceChannel
	if m.guild != nil {
		channels = m.guild.VoiceChannels
	}
	g := m.app.Guild

	switch msg.String() {
	case "j", "down":
		m.channelsView.SelectNext(len(channels))
	case "k", "up":
		m.channelsView.SelectPrev()
	case "enter":
		sel := m.channelsView.Selected()
		if sel >= 0 && sel < len(channels) {
			id := channels[sel].ID
			return m, action(func(ctx context.Context) error { return g.JoinChannel(ctx, id) })
		}
	case "L":
		return m, action(g.Leave)
	}
	return m, nil
}

func (m Model) servers() []core.Server {
	if m.guild == nil {
		return nil
	}
	return m.guild.Servers
}

func (m Model) handleServerKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	servers := m.servers()
	switch msg.String() {
	case "esc", "s":
		m.showServers = false
	case "j", "down", "ctrl+n":
		if m.serverCursor < len(servers)-1 {
			m.serverCursor++
		}
	case "k", "up", "ctrl+p":
		if m.serverCursor > 0 {
			m.serverCursor--
		}
	case "r":
		m.loadingServer = true
		return m, m.fetchServers(true)
	case "enter":
		if m.serverCursor < len(servers) {
			id := servers[m.serverCursor].ID
			m.showServers = false
			g := m.app.Guild
			return m, action(func(ctx context.Context) error { return g.SetActiveServerID(ctx, id) })
		}
	}
	return m, nil
}

func (m Model) handleSearchKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "esc":
		m.showSearch = false
		m.searchInput.Blur()
		return m, nil

	case "enter":
		var track core.Track
		switch query := strings.TrimSpace(m.searchInput.Value()); {
		case isURL(query):
			track = core.Track{URL: query}
		case m.searchCursor < len(m.searchResults):
			track = m.searchResults[m.searchCursor]
		default:
			return m, nil
		}
		m.showSearch = false
		m.searchInput.Blur()
		p := m.app.Player
		return m, action(func(ctx context.Context) error { return p.AddToQueue(ctx, track) })

	case "up", "ctrl+p":
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.searchCursor < len(m.searchResults)-1 {
			m.searchCursor++
		}
		return m, nil
	}

	var inputCmd tea.Cmd
	m.searchInput, inputCmd = m.searchInput.Update(msg)
	cmds = append(cmds, inputCmd)

	// Debounce search
	if m.searchInput.Value() != m.lastQuery {
		query := m.searchInput.Value()
		cmds = append(cmds, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchDebounceMsg{query: query}
		}))
	}

	return m, tea.Batch(cmds...)
}

func (m Model) togglePlayPause() tea.Cmd {
	p := m.app.Player
	playing := false
	if m.state != nil {
		_, _, playing = m.state.Active()
	}
	if playing {
		return action(p.Pause)
	}
	return action(p.Play)
}

func (m Model) changeVolume(delta int) tea.Cmd {
	if m.state == nil || !m.state.IsOnDeviceMode {
		return nil
	}
	p := m.app.Player
	vol := m.state.Volume + delta
	return action(func(context.Context) error {
		p.SetVolume(vol)
		return nil
	})
}

func (m Model) seek(delta time.Duration) tea.Cmd {
	if m.state == nil || !m.state.IsOnDeviceMode {
		return nil
	}
	p := m.app.Player
	pos := m.state.CurrentTime + delta
	return action(func(ctx context.Context) error { return p.Seek(ctx, pos) })
}

func (m Model) historyEntries() []components.HistoryEntry {
	if m.state != nil && !m.state.IsOnDeviceMode && len(m.state.History) > 0 {
		return lo.Map(m.state.History, func(item core.QueueItem, _ int) components.HistoryEntry {
			return components.HistoryEntry{Track: item.Track}
		})
	}
	return m.history
}

func (m Model) serverName() string {
	if m.guild == nil {
		return ""
	}
	s, ok := lo.Find(m.guild.Servers, func(s core.Server) bool { return s.ID == m.guild.ActiveServerID })
	if !ok {
		return ""
	}
	return s.Name
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}
	if m.showSearch {
		return m.renderSearch()
	}
	if m.showServers {
		return m.renderServers()
	}

	// Main layout: two columns
	// Left: Now Playing (top), Queue (bottom)
	// Right: Voice channels (top), History (bottom)

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 2
	topHeight := m.height * 40 / 100
	bottomHeight := m.height - topHeight - 2

	nowPlaying := m.nowPlaying.Render(m.state, leftWidth-2, topHeight-2, m.focusedPanel == PanelNowPlaying)
	queueView := m.queueView.Render(m.activeQueue(), leftWidth-2, bottomHeight-2, m.focusedPanel == PanelQueue)
	channelsView := m.channelsView.Render(m.guild, m.serverName(), rightWidth-2, topHeight-2, m.focusedPanel == PanelChannels)
	historyView := m.historyView.Render(m.historyEntries(), rightWidth-2, bottomHeight-2, m.focusedPanel == PanelHistory)

	leftCol := lipgloss.JoinVertical(lipgloss.Left, nowPlaying, queueView)
	rightCol := lipgloss.JoinVertical(lipgloss.Left, channelsView, historyView)

	main := lipgloss.JoinHorizontal(lipgloss.Top, leftCol, rightCol)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) renderStatusBar() string {
	status := styles.Dim.Render("q:quit  ?:help  /:add  s:servers  space:play/pause  n:skip  m:mode  tab:switch panel")

	if m.note != nil {
		switch m.note.Level {
		case notify.LevelError:
			status = styles.Failure.Render(m.note.Text)
		case notify.LevelSuccess:
			status = styles.Playing.Render(m.note.Text)
		default:
			status = styles.Highlight.Render(m.note.Text)
		}
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := "riffcord - Keyboard Shortcuts"
	divider := strings.Repeat("═", len(title))

	help := `
  ` + title + `
  ` + divider + `

  Global
  ──────
  q, Ctrl+C    Quit
  ?            Toggle help
  /            Search and add to queue
  s            Pick a server
  r            Refresh servers
  Tab          Next panel
  Shift+Tab    Previous panel

  Playback
  ────────
  Space        Play/Pause
  n            Skip
  m            Toggle server/on-device mode
  +/=  -       Volume (on-device)
  ←/→          Seek (on-device, Now Playing)

  Queue Panel
  ───────────
  j/k          Select
  J/K          Move selected down/up
  x            Remove selected

  Voice Panel
  ───────────
  j/k          Select
  Enter        Bring the bot to the channel
  L            Disconnect the bot

  Press ? or Esc to close
`

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.BorderStyle.Render(help))
}

func (m Model) renderServers() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.Primary)
	b.WriteString(titleStyle.Render("Servers"))
	b.WriteString("\n\n")

	servers := m.servers()
	active := ""
	if m.guild != nil {
		active = m.guild.ActiveServerID
	}

	switch {
	case m.loadingServer && len(servers) == 0:
		b.WriteString(styles.Muted.Render("Loading..."))
		b.WriteString("\n")
	case len(servers) == 0:
		b.WriteString(styles.Muted.Render("No servers with the bot"))
		b.WriteString("\n")
	default:
		for i, s := range servers {
			line := s.Name
			if s.ID == active {
				line += styles.Playing.Render(" ●")
			}
			if i == m.serverCursor {
				b.WriteString(lipgloss.NewStyle().Background(styles.Surface).Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	if m.guild != nil && len(m.guild.InvitableServers) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.Dim.Render(fmt.Sprintf("%d more server(s) you could invite the bot to", len(m.guild.InvitableServers))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.Dim.Render("↑/↓:nav  Enter:select  r:refresh  Esc:close"))

	content := lipgloss.NewStyle().
		Width(60).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.FocusedBorder.Render(content))
}

func (m Model) renderSearch() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.Primary)
	b.WriteString(titleStyle.Render("Add to queue"))
	b.WriteString("\n\n")

	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	selectedStyle := lipgloss.NewStyle().Background(styles.Surface)

	switch {
	case isURL(m.searchInput.Value()):
		b.WriteString(styles.Muted.Render("Press Enter to queue this URL"))
	case m.searchErr != nil:
		b.WriteString(styles.Failure.Render("Error: " + m.searchErr.Error()))
	case m.searching:
		b.WriteString(styles.Muted.Render("Searching..."))
	case len(m.searchResults) == 0 && m.searchInput.Value() != "" && m.lastQuery != "":
		b.WriteString(styles.Muted.Render("No results found"))
	default:
		const maxResults = 10
		for i, result := range m.searchResults {
			if i >= maxResults {
				b.WriteString(styles.Muted.Render("  ...and more"))
				break
			}

			line := result.DisplayTitle()
			if by := components.Byline(result); by != "" {
				line += " " + styles.Muted.Render(by)
			}

			if i == m.searchCursor {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("↑/↓:nav  Enter:queue  Esc:close"))

	content := lipgloss.NewStyle().
		Width(60).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.FocusedBorder.Render(content))
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, app *App) error {
	states, unsubscribe := app.Player.Subscribe()
	defer unsubscribe()
	guildStates, unsubscribeGuild := app.Guild.Subscribe()
	defer unsubscribeGuild()

	model := NewModel(app, states, guildStates)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
