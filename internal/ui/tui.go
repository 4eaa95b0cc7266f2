// ABOUTME: Terminal renderer and input source wrapping a bubbletea program
// ABOUTME: Exposes poll-with-timeout, read, draw and inject for the transport controller
package ui

import (
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"
)

// ErrClosed is returned once the terminal program has exited
var ErrClosed = errors.New("terminal closed")

// sizeWait bounds how long Size waits for the first window size report
const sizeWait = time.Second

// program is the subset of *tea.Program the terminal drives
type program interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
	Quit()
}

// Terminal renders views and reports input. Poll, Read and Draw are called
// from the control goroutine; Inject may be called from any goroutine.
type Terminal struct {
	program program
	events  chan Event
	pending mo.Option[Event]
	done    chan struct{}
	stop    chan struct{}

	stopOnce sync.Once
	runErr   error

	sized     chan struct{}
	sizedOnce sync.Once
	mu        sync.Mutex
	width     int
	height    int

	// latest view handed to Draw, picked up by the program on redrawMsg
	redraw chan struct{}
	viewMu sync.Mutex
	latest View
}

// redrawMsg tells the program to display the latest drawn view
type redrawMsg struct{}

// NewTerminal starts a full-screen bubbletea program
func NewTerminal(opts ...tea.ProgramOption) *Terminal {
	t := newTerminal()
	model := NewModel(t.events, t.stop)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	t.start(tea.NewProgram(sizeTracker{Model: model, t: t}, opts...))
	return t
}

func newTerminal() *Terminal {
	return &Terminal{
		events:  make(chan Event, 64),
		pending: mo.None[Event](),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
		sized:   make(chan struct{}),
		redraw:  make(chan struct{}, 1),
	}
}

func (t *Terminal) start(p program) {
	t.program = p
	go func() {
		_, err := p.Run()
		t.runErr = err
		close(t.done)
	}()
	go t.pump()
}

// pump forwards redraw requests to the program. Send may block while the
// program is busy; only this goroutine waits for it.
func (t *Terminal) pump() {
	for {
		select {
		case <-t.redraw:
			t.program.Send(redrawMsg{})
		case <-t.done:
			return
		}
	}
}

func (t *Terminal) latestView() View {
	t.viewMu.Lock()
	defer t.viewMu.Unlock()
	return t.latest
}

// sizeTracker records window sizes before handing messages to the model
type sizeTracker struct {
	Model
	t *Terminal
}

func (s sizeTracker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.t.setSize(msg.Width, msg.Height)
	case redrawMsg:
		return s.Update(viewMsg(s.t.latestView()))
	}
	m, cmd := s.Model.Update(msg)
	s.Model = m.(Model)
	return s, cmd
}

func (t *Terminal) setSize(width, height int) {
	t.mu.Lock()
	t.width, t.height = width, height
	t.mu.Unlock()
	t.sizedOnce.Do(func() { close(t.sized) })
}

// Size returns the terminal size in cells, waiting briefly for the first
// report. It falls back to 80x24.
func (t *Terminal) Size() (int, int, error) {
	select {
	case <-t.sized:
	case <-t.done:
		return 0, 0, t.closedErr()
	case <-time.After(sizeWait):
		return 80, 24, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height, nil
}

// Poll waits up to timeout for an event. A negative timeout waits
// indefinitely. The event stays pending until Read.
func (t *Terminal) Poll(timeout time.Duration) (bool, error) {
	if t.pending.IsPresent() {
		return true, nil
	}

	var expired <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case ev := <-t.events:
		t.pending = mo.Some(ev)
		return true, nil
	case <-expired:
		return false, nil
	case <-t.done:
		return false, t.closedErr()
	}
}

// Read returns the pending event or blocks for the next one
func (t *Terminal) Read() (Event, error) {
	if ev, ok := t.pending.Get(); ok {
		t.pending = mo.None[Event]()
		return ev, nil
	}
	select {
	case ev := <-t.events:
		return ev, nil
	case <-t.done:
		return Event{}, t.closedErr()
	}
}

// Inject delivers an event as if it came from the keyboard
func (t *Terminal) Inject(ev Event) error {
	select {
	case t.events <- ev:
		return nil
	case <-t.done:
		return t.closedErr()
	case <-t.stop:
		return ErrClosed
	}
}

// Draw displays v. It never waits for the program: the view replaces any
// not yet displayed one and a redraw is requested.
func (t *Terminal) Draw(v View) error {
	select {
	case <-t.done:
		return t.closedErr()
	default:
	}

	t.viewMu.Lock()
	t.latest = v
	t.viewMu.Unlock()

	select {
	case t.redraw <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the program and restores the terminal
func (t *Terminal) Close() error {
	t.stopOnce.Do(func() {
		close(t.stop)
		t.program.Quit()
	})
	<-t.done
	if t.runErr != nil && !errors.Is(t.runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal: %w", t.runErr)
	}
	return nil
}

func (t *Terminal) closedErr() error {
	if t.runErr != nil {
		return fmt.Errorf("%w: %v", ErrClosed, t.runErr)
	}
	return ErrClosed
}
