// ABOUTME: Key bindings for playback control
// ABOUTME: Matched against event key names and rendered as overlay hints
package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/samber/lo"
)

// KeyMap holds the playback bindings
type KeyMap struct {
	Quit    key.Binding
	Toggle  key.Binding
	Back    key.Binding
	Forward key.Binding
}

// Keys is the default key map
var Keys = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("k", " ", "space"),
		key.WithHelp("k", "pause"),
	),
	Back: key.NewBinding(
		key.WithKeys("j", "left"),
		key.WithHelp("j", "back"),
	),
	Forward: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l", "forward"),
	),
}

// Matches reports whether the key name of ev triggers b
func Matches(ev Event, b key.Binding) bool {
	return ev.Kind == EventKey && b.Enabled() && lo.Contains(b.Keys(), ev.Key)
}

// Hints renders the bindings for the overlay, e.g. "k pause  j/l seek  q quit"
func (k KeyMap) Hints() string {
	toggle, back, forward, quit := k.Toggle.Help(), k.Back.Help(), k.Forward.Help(), k.Quit.Help()
	return toggle.Key + " " + toggle.Desc + "  " +
		back.Key + "/" + forward.Key + " seek  " +
		quit.Key + " " + quit.Desc
}
