// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Forwards input to the controller and renders the latest view it was sent
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state. It holds no playback state; the
// controller pushes complete views in.
type Model struct {
	events chan<- Event
	done   <-chan struct{}
	view   View

	// Dimensions
	width  int
	height int
}

// viewMsg replaces the view being displayed
type viewMsg View

// NewModel creates a model forwarding input to events until done closes
func NewModel(events chan<- Event, done <-chan struct{}) Model {
	return Model{events: events, done: done}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.forward(KeyEvent(msg.String()))
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.forward(ResizeEvent(msg.Width, msg.Height))
	case tea.MouseMsg, tea.FocusMsg, tea.BlurMsg:
		m.forward(Event{Kind: EventOther})
	case viewMsg:
		m.view = View(msg)
	}

	return m, nil
}

// forward delivers an event unless the terminal is shutting down. Events
// the controller ignores are dropped rather than waited for.
func (m Model) forward(ev Event) {
	if m.events == nil {
		return
	}
	if ev.Kind == EventOther {
		select {
		case m.events <- ev:
		default:
		}
		return
	}
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	return Render(m.view, m.width, m.height)
}
