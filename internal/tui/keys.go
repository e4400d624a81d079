package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the test runner.
type KeyMap struct {
	Respond key.Binding
	Advance key.Binding
	Reset   key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Respond: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "respond"),
		),
		Advance: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "continue"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
