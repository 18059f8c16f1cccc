package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	NextPane   key.Binding
	PrevPane   key.Binding
	Open       key.Binding
	Refresh    key.Binding
	RefreshAll key.Binding
	Refetch    key.Binding
	Cancel     key.Binding
	Debug      key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		NextPane:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "pane")),
		PrevPane:   key.NewBinding(key.WithKeys("shift+tab")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		RefreshAll: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "all")),
		Refetch:    key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "refetch")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Debug:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "events")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// hints lists the bindings shown in the status bar.
func (k keyMap) hints() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.NextPane, k.Open, k.Refresh, k.RefreshAll, k.Refetch, k.Cancel, k.Debug, k.Quit}
}
