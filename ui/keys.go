package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	TogglePlay key.Binding
	Next       key.Binding
	Prev       key.Binding
	Retry      key.Binding
	Settings   key.Binding
	StartNow   key.Binding
	HoldCount  key.Binding
	EndSaga    key.Binding
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		TogglePlay: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		Next: key.NewBinding(
			key.WithKeys("n", "right", "l"),
			key.WithHelp("n", "next scene"),
		),
		Prev: key.NewBinding(
			key.WithKeys("p", "left", "h"),
			key.WithHelp("p", "previous scene"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry generation"),
		),
		Settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "settings"),
		),
		StartNow: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "continue now"),
		),
		HoldCount: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "hold countdown"),
		),
		EndSaga: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "end story"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "toggle"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePlay, k.Next, k.Prev, k.Settings, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TogglePlay, k.Next, k.Prev, k.Retry},
		{k.Settings, k.StartNow, k.HoldCount, k.EndSaga},
		{k.Help, k.Quit},
	}
}
