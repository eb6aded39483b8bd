package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	First    key.Binding
	Last     key.Binding

	// Filtering and sorting
	CycleType    key.Binding
	CycleAmount  key.Binding
	CyclePerPage key.Binding
	SortColumn   key.Binding
	SortOrder    key.Binding
	Search       key.Binding
	ClearFilter  key.Binding

	// Training
	StartTraining key.Binding
	StopWatching  key.Binding

	// Application
	ToggleView key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("h", "left", "pgup"),
			key.WithHelp("←/h", "previous page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("l", "right", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),
		First: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "first page"),
		),
		Last: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "last page"),
		),

		CycleType: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "cycle type filter"),
		),
		CycleAmount: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "cycle amount preset"),
		),
		CyclePerPage: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "cycle page size"),
		),
		SortColumn: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle sort column"),
		),
		SortOrder: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "toggle sort order"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		ClearFilter: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear filters"),
		),

		StartTraining: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "start training"),
		),
		StopWatching: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop watching"),
		),

		ToggleView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "switch view"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q/Esc", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleView, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage, k.First, k.Last},
		{k.CycleType, k.CycleAmount, k.CyclePerPage, k.SortColumn, k.SortOrder, k.Search, k.ClearFilter},
		{k.StartTraining, k.StopWatching},
		{k.ToggleView, k.Refresh, k.Help, k.Quit},
	}
}
