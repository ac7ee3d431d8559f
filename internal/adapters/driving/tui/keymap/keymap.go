// Package keymap holds the key bindings of the analysis progress view.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap binds quitting and report scrolling. The report viewport applies
// its own paging keys; PageUp and PageDown mirror them for help text.
type KeyMap struct {
	// Quit cancels a run in progress or closes the finished report.
	Quit key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

// DefaultKeyMap returns vim-style bindings alongside the arrow keys.
func DefaultKeyMap() *KeyMap {
	bind := func(help, desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
	}
	return &KeyMap{
		Quit:     bind("q", "quit", "q", "esc", "ctrl+c"),
		Up:       bind("↑/k", "up", "up", "k"),
		Down:     bind("↓/j", "down", "down", "j"),
		PageUp:   bind("pgup", "page up", "pgup", "b"),
		PageDown: bind("f/pgdn", "page down", "pgdown", " ", "f"),
	}
}

// ShortHelp lists the bindings active while the pipeline runs.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// ReportHelp lists the bindings active once the report is shown.
func (k *KeyMap) ReportHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PageDown, k.Quit}
}

// Matches reports whether keyStr is one of binding's keys.
func Matches(keyStr string, binding key.Binding) bool {
	return slices.Contains(binding.Keys(), keyStr)
}
