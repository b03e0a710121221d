package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the reaction screen.
type KeyMap struct {
	React key.Binding
	Start key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.React, k.Start, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.React, k.Start},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns default key bindings. A mouse press acts like React.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		React: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space/click", "react"),
		),
		Start: key.NewBinding(
			key.WithKeys("enter", "r"),
			key.WithHelp("enter/r", "new run"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
