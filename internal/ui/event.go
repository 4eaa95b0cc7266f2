// ABOUTME: Terminal input events delivered to the controller
// ABOUTME: Keys, resizes and anything else the terminal reports
package ui

import (
	"fmt"

	"github.com/harperreed/termvid/internal/protocol"
)

// EventKind classifies an input event
type EventKind int

const (
	EventOther EventKind = iota
	EventKey
	EventResize
	EventRemote
)

// Event is one input event. Key uses bubbletea key names ("q", "ctrl+c",
// "left", "space"); Width and Height are terminal cells. Request carries a
// remote control message.
type Event struct {
	Kind    EventKind
	Key     string
	Width   int
	Height  int
	Request protocol.Request
}

// KeyEvent builds a key press event
func KeyEvent(key string) Event {
	return Event{Kind: EventKey, Key: key}
}

// ResizeEvent builds a terminal resize event
func ResizeEvent(width, height int) Event {
	return Event{Kind: EventResize, Width: width, Height: height}
}

// RemoteEvent wraps a request received from a remote client
func RemoteEvent(req protocol.Request) Event {
	return Event{Kind: EventRemote, Request: req}
}

func (e Event) String() string {
	switch e.Kind {
	case EventKey:
		return "key(" + e.Key + ")"
	case EventResize:
		return fmt.Sprintf("resize(%dx%d)", e.Width, e.Height)
	case EventRemote:
		return "remote(" + e.Request.Command + ")"
	default:
		return "other"
	}
}
