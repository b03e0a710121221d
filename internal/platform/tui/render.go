package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-reaction/internal/reaction"
)

// Layout constants
const (
	defaultHistoryRows = 5
	chromeHeight       = 6 // table header, average line, help bar, margins
	minStageHeight     = 5
)

// stageStyles maps each screen to its background.
var stageStyles = map[screen]lipgloss.Style{
	screenWelcome:  lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("252")),
	screenPrepare:  lipgloss.NewStyle().Background(lipgloss.Color("124")).Foreground(lipgloss.Color("15")),
	screenStimulus: lipgloss.NewStyle().Background(lipgloss.Color("28")).Foreground(lipgloss.Color("15")),
	screenTooSoon:  lipgloss.NewStyle().Background(lipgloss.Color("208")).Foreground(lipgloss.Color("0")),
	screenTooSlow:  lipgloss.NewStyle().Background(lipgloss.Color("25")).Foreground(lipgloss.Color("15")),
	screenResult:   lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("229")),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderStage())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(averageLine(m.history)))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// renderStage renders the colored area that carries the stimulus.
func (m Model) renderStage() string {
	title, subtitle := m.stageText()
	style := stageStyles[m.screen]

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Inherit(style).Render(title),
		"",
		style.Render(subtitle),
	)

	height := m.height - historyHeight(m.height) - chromeHeight
	if height < minStageHeight {
		height = minStageHeight
	}

	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, content,
		lipgloss.WithWhitespaceBackground(style.GetBackground()),
	)
}

// stageText returns the headline and hint for the current screen.
func (m Model) stageText() (title, subtitle string) {
	switch m.screen {
	case screenPrepare:
		return "Wait for green...", "press space or click when the screen turns green"
	case screenStimulus:
		return "React now!", "press space or click"
	case screenTooSoon:
		return "Too soon!", "press enter to try again"
	case screenTooSlow:
		return "Too slow!", "press enter to try again"
	case screenResult:
		return formatMillis(m.reactionTime), "press enter to try again"
	default:
		if !m.ready {
			return "Reaction timer", ""
		}
		return "Reaction timer", "press enter to start"
	}
}

// historyHeight returns how many table rows fit a terminal of the given height.
func historyHeight(termHeight int) int {
	rows := termHeight / 3
	if rows < 2 {
		rows = 2
	}
	if rows > defaultHistoryRows+5 {
		rows = defaultHistoryRows + 5
	}
	return rows
}

// newHistoryTable creates the bubbles table that lists recent outcomes.
func newHistoryTable(height int) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Result", Width: 10},
		{Title: "Time", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// historyRows converts a history view to table rows, oldest first.
func historyRows(h reaction.HistoryView) []table.Row {
	rows := make([]table.Row, len(h.Outcomes))
	for i, o := range h.Outcomes {
		rows[i] = table.Row{strconv.Itoa(i + 1), resultLabel(o), resultTime(o)}
	}
	return rows
}

func resultLabel(o reaction.Outcome) string {
	switch o.(type) {
	case reaction.Success:
		return "ok"
	case reaction.TooSoon:
		return "too soon"
	case reaction.TimedOut:
		return "too slow"
	default:
		return "?"
	}
}

func resultTime(o reaction.Outcome) string {
	if rt, ok := reaction.ReactionTime(o); ok {
		return formatMillis(rt)
	}
	return "-"
}

func averageLine(h reaction.HistoryView) string {
	if !h.HasAverage {
		return "average: -"
	}
	return "average: " + formatMillis(h.Average)
}

// formatMillis renders a duration as whole milliseconds, rounded.
func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Round(time.Millisecond).Milliseconds())
}
