// ABOUTME: Decodes audio ahead of the device on its own goroutine into a fixed frame ring
// ABOUTME: Lets the fill path take frames, seek and flush without ever waiting on the decoder
package player

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/harperreed/termvid/internal/media"
)

// ErrUnderrun is returned by Prefetcher.NextFrame when the decoder has not
// produced the next frame yet. It is not an end of stream.
var ErrUnderrun = errors.New("audio underrun")

// slot is one ring entry. A slot carrying err ends its generation.
type slot struct {
	gen  uint64
	data []byte
	pts  media.Timestamp
	err  error
}

// reposition asks the producer to move the decoder. Each request starts a
// new generation; frames of older generations are discarded unread.
type reposition struct {
	gen    uint64
	seek   bool
	target media.Timestamp
}

// Prefetcher owns a decoder on a producer goroutine and hands its frames to
// a single consumer through a ring of preallocated slots. The consumer side
// (NextFrame, Seek, Flush) never blocks and must be used from one goroutine.
type Prefetcher struct {
	source Source
	slots  []slot
	head   atomic.Uint64 // next slot the producer fills
	tail   atomic.Uint64 // next slot the consumer reads

	request atomic.Pointer[reposition]
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	// consumer state
	gen     uint64
	holding bool
	fresh   bool // no frame returned since the last Seek
}

// NewPrefetcher wraps source with a ring of capacity frames of frameSize
// bytes each. Call Start to begin decoding.
func NewPrefetcher(source Source, capacity, frameSize int) *Prefetcher {
	if capacity < 2 {
		capacity = 2
	}
	p := &Prefetcher{
		source: source,
		slots:  make([]slot, capacity),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for i := range p.slots {
		p.slots[i].data = make([]byte, 0, frameSize)
	}
	return p
}

// Start launches the producer goroutine
func (p *Prefetcher) Start() {
	p.wg.Add(1)
	go p.run()
}

// Close stops the producer and waits for it. The source is not closed.
func (p *Prefetcher) Close() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}

// NextFrame returns the next decoded frame, the error that ended the
// stream, or ErrUnderrun. The returned data stays valid until the next
// call to NextFrame, Seek or Flush.
func (p *Prefetcher) NextFrame() (media.Frame, error) {
	tail := p.tail.Load()
	if p.holding {
		p.holding = false
		tail++
		p.tail.Store(tail)
		p.signal()
	}

	n := uint64(len(p.slots))
	for tail != p.head.Load() {
		s := &p.slots[tail%n]
		if s.gen != p.gen {
			tail++
			p.tail.Store(tail)
			p.signal()
			continue
		}
		if s.err != nil {
			// left in place so later calls keep reporting it
			return media.Frame{}, s.err
		}
		p.holding, p.fresh = true, false
		return media.Frame{Data: s.data, PTS: s.pts}, nil
	}
	return media.Frame{}, ErrUnderrun
}

// Seek asks the producer to reposition at target. Frames decoded before
// the seek are never returned. A failed seek surfaces as the error of the
// next generation.
func (p *Prefetcher) Seek(target media.Timestamp) error {
	p.next(reposition{seek: true, target: target})
	p.fresh = true
	return nil
}

// Flush drops every decoded frame not yet returned and flushes the decoder.
// Straight after a Seek there is nothing to drop.
func (p *Prefetcher) Flush() {
	if p.fresh {
		return
	}
	p.next(reposition{})
}

// next publishes a new generation, replacing any request the producer has
// not taken yet.
func (p *Prefetcher) next(req reposition) {
	p.gen++
	req.gen = p.gen
	p.holding = false
	p.request.Store(&req)
	p.signal()
}

func (p *Prefetcher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Prefetcher) run() {
	defer p.wg.Done()

	var (
		gen     uint64
		pending error
		stalled bool
	)
	n := uint64(len(p.slots))
	for {
		if req := p.request.Swap(nil); req != nil {
			gen, stalled, pending = req.gen, false, nil
			if req.seek {
				pending = p.source.Seek(req.target)
			}
			if pending == nil {
				p.source.Flush()
			}
		}

		head := p.head.Load()
		if stalled || head-p.tail.Load() == n {
			select {
			case <-p.wake:
			case <-p.done:
				return
			}
			continue
		}
		select {
		case <-p.done:
			return
		default:
		}

		s := &p.slots[head%n]
		s.gen, s.err, s.data = gen, nil, s.data[:0]
		if pending != nil {
			s.err, pending, stalled = pending, nil, true
		} else {
			frame, err := p.source.NextFrame()
			if err != nil {
				s.err, stalled = err, true
			} else {
				s.pts = frame.PTS
				s.data = append(s.data, frame.Data...)
			}
		}
		p.head.Store(head + 1)
	}
}
