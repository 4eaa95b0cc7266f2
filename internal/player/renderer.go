// ABOUTME: Real-time audio fill path driven by the output device
// ABOUTME: Drains transport commands, keeps its own muted replica, copies decoded bytes
package player

import (
	"errors"
	"sync/atomic"

	"github.com/harperreed/termvid/internal/media"
	"github.com/harperreed/termvid/internal/metrics"
	"github.com/harperreed/termvid/internal/protocol"
	"github.com/samber/mo"
)

// Source is a decoded audio track already in the device format. The
// renderer calls it from the device callback, so a Source handed to a
// renderer must not block; a Prefetcher in front of a decoder provides that
// and reports ErrUnderrun while it catches up.
type Source interface {
	NextFrame() (media.Frame, error)
	Seek(target media.Timestamp) error
	Flush()
}

// Cursor tracks partial consumption of one decoded frame across fills
type Cursor struct {
	Frame  mo.Option[media.Frame]
	Offset int
}

// Remaining returns the unconsumed bytes of the current frame
func (c *Cursor) Remaining() []byte {
	frame, ok := c.Frame.Get()
	if !ok || c.Offset >= len(frame.Data) {
		return nil
	}
	return frame.Data[c.Offset:]
}

// Reset forgets the current frame
func (c *Cursor) Reset() {
	c.Frame = mo.None[media.Frame]()
	c.Offset = 0
}

// Renderer fills device buffers. All of its state is owned by the device
// goroutine; the only input from elsewhere is the command receiver.
// Fill never blocks on other goroutines and never logs.
type Renderer struct {
	source   Source
	commands *protocol.Receiver
	cursor   Cursor
	muted    atomic.Bool
	metrics  *metrics.Metrics
	apply    func(protocol.Command)
}

// NewRenderer creates a renderer reading from source and commands.
// m may be nil.
func NewRenderer(source Source, commands *protocol.Receiver, m *metrics.Metrics) *Renderer {
	r := &Renderer{
		source:   source,
		commands: commands,
		metrics:  m,
	}
	r.cursor.Reset()
	r.apply = r.applyCommand
	return r
}

// Fill writes exactly len(out) bytes of audio or silence into out.
func (r *Renderer) Fill(out []byte) {
	r.commands.Drain(r.apply)

	if r.metrics != nil {
		r.metrics.AudioFills.Inc()
	}

	if r.muted.Load() {
		clear(out)
		if r.metrics != nil {
			r.metrics.AudioSilentFills.Inc()
		}
		return
	}

	n := 0
	for n < len(out) {
		rest := r.cursor.Remaining()
		if rest == nil {
			frame, err := r.source.NextFrame()
			if err != nil {
				// an underrun is transient; anything else ends the track
				if !errors.Is(err, ErrUnderrun) {
					r.muted.Store(true)
				}
				clear(out[n:])
				if r.metrics != nil {
					r.metrics.AudioUnderruns.Inc()
				}
				return
			}
			r.cursor.Frame = mo.Some(frame)
			r.cursor.Offset = 0
			continue
		}
		c := copy(out[n:], rest)
		r.cursor.Offset += c
		n += c
	}
}

// Read adapts Fill to io.Reader for devices that pull audio. It always
// returns len(p), nil so the device never sees end of stream.
func (r *Renderer) Read(p []byte) (int, error) {
	r.Fill(p)
	return len(p), nil
}

func (r *Renderer) applyCommand(cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.KindPause:
		r.muted.Store(true)
	case protocol.KindResume:
		r.muted.Store(false)
	case protocol.KindSeek:
		r.cursor.Reset()
		if err := r.source.Seek(cmd.Target); err != nil {
			// The clock moved but this track could not follow it.
			r.muted.Store(true)
			return
		}
		r.source.Flush()
		r.muted.Store(false)
	case protocol.KindResize:
	}
}

// Muted reports the renderer's replica of the paused state. Safe to call
// from any goroutine.
func (r *Renderer) Muted() bool {
	return r.muted.Load()
}

// Close tears down the command stream; later sends fail
func (r *Renderer) Close() {
	r.commands.Close()
}
