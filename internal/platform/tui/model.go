package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-reaction/internal/reaction"
)

// screen is what the stage area currently shows.
type screen int

const (
	screenWelcome screen = iota
	screenPrepare
	screenStimulus
	screenTooSoon
	screenTooSlow
	screenResult
)

// live reports whether a run is waiting on the player.
func (s screen) live() bool {
	return s == screenPrepare || s == screenStimulus
}

// Starter starts a new run, canceling the live one. *reaction.Game implements it.
type Starter interface {
	Start(ctx context.Context) (*reaction.Run, error)
}

// Model is the Bubble Tea model for the reaction timer.
type Model struct {
	game Starter
	keys KeyMap
	help help.Model

	table   table.Model
	history reaction.HistoryView

	run          string // id of the run on screen
	screen       screen
	ready        bool
	reactionTime time.Duration
	listener     *listener
	err          error

	now      func() time.Time
	width    int
	height   int
	quitting bool
}

// NewModel creates a new Bubble Tea model driving the given game.
func NewModel(game Starter) Model {
	h := help.New()
	h.ShowAll = false

	return Model{
		game:   game,
		keys:   DefaultKeyMap(),
		help:   h,
		table:  newHistoryTable(defaultHistoryRows),
		now:    time.Now,
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			return m.handlePress()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(historyHeight(msg.Height))
		return m, nil

	case initMsg:
		m.ready = true
		return m, nil

	case prepareMsg:
		msg.ack <- m.now()
		if msg.listener != nil && msg.listener.ctx.Err() != nil {
			// Canceled before it reached the screen.
			return m, nil
		}
		m.run = msg.run
		m.screen = screenPrepare
		m.listener = msg.listener
		m.err = nil
		return m, nil

	case phaseMsg:
		msg.ack <- m.now()
		if msg.run != m.run {
			return m, nil
		}
		m.screen = msg.screen
		if msg.screen != screenStimulus {
			m.listener = nil
		}
		return m, nil

	case finishMsg:
		if msg.run != m.run {
			return m, nil
		}
		m.screen = screenResult
		m.reactionTime = msg.reactionTime
		m.listener = nil
		return m, nil

	case cancelMsg:
		if msg.run == m.run {
			m.listener = nil
		}
		return m, nil

	case historyMsg:
		m.history = msg.view
		m.table.SetRows(historyRows(msg.view))
		m.table.GotoBottom()
		return m, nil

	case startErrMsg:
		m.err = msg.err
		m.screen = screenWelcome
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.React):
		m.react()
		return m, nil

	case key.Matches(msg, m.keys.Start):
		return m, m.startCmd()
	}

	return m, nil
}

// handlePress treats a mouse press as a reaction while a run is live and as
// "new run" otherwise.
func (m Model) handlePress() (tea.Model, tea.Cmd) {
	if m.screen.live() {
		m.react()
		return m, nil
	}
	return m, m.startCmd()
}

// react hands the input timestamp to the armed listener, if any. Only the
// first input of a run is delivered.
func (m *Model) react() {
	if m.listener == nil {
		return
	}
	m.listener.deliver(m.now())
	m.listener = nil
}

// startCmd starts a run off the event loop: the game calls back into the
// port, which waits on this model.
func (m Model) startCmd() tea.Cmd {
	game := m.game
	return func() tea.Msg {
		_, err := game.Start(context.Background())
		if err != nil && !errors.Is(err, reaction.ErrCanceled) {
			return startErrMsg{err: err}
		}
		return nil
	}
}

// Quitting reports whether the user asked to quit.
func (m Model) Quitting() bool {
	return m.quitting
}

// Run starts the Bubble Tea program for the given game and port. It
// returns when the user quits.
func Run(game Starter, port *Port) error {
	p := tea.NewProgram(
		NewModel(game),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	port.Attach(p)
	defer port.Close()

	_, err := p.Run()
	return err
}
