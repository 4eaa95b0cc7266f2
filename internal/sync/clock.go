// ABOUTME: Playback clock mapping wall-clock instants to media position
// ABOUTME: Supports pause freezing, resume and seek re-anchoring over an injectable time source
package sync

import (
	"sync"
	"time"

	"github.com/harperreed/termvid/internal/media"
)

// State is the run state of a Clock
type State int

const (
	StateRunning State = iota
	StatePaused
)

func (s State) String() string {
	if s == StatePaused {
		return "paused"
	}
	return "running"
}

// Clock tracks the current media position.
//
// While running, Now is derived from the elapsed wall time since the last
// anchor. While paused, Now returns the value frozen at Pause and does not
// consult the time source at all.
type Clock struct {
	mu            sync.Mutex
	source        TimeSource
	anchorInstant time.Time
	anchorMedia   media.Timestamp
	frozen        media.Timestamp
	state         State
}

// NewClock creates a running clock anchored at media position zero.
func NewClock(source TimeSource) *Clock {
	if source == nil {
		source = SystemTime{}
	}
	return &Clock{
		source:        source,
		anchorInstant: source.Now(),
		state:         StateRunning,
	}
}

// Now returns the current media position.
func (c *Clock) Now() media.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePaused {
		return c.frozen
	}
	return c.live()
}

// live computes the running position. Caller holds mu.
func (c *Clock) live() media.Timestamp {
	elapsed := c.source.Now().Sub(c.anchorInstant)
	if elapsed < 0 {
		elapsed = 0
	}
	return c.anchorMedia + elapsed
}

// Pause freezes the clock at its current position. Pausing an already
// paused clock keeps the original frozen value.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePaused {
		return
	}
	c.frozen = c.live()
	c.state = StatePaused
}

// Resume restarts a paused clock from its frozen position.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return
	}
	c.anchorInstant = c.source.Now()
	c.anchorMedia = c.frozen
	c.state = StateRunning
}

// Seek re-anchors the clock at target. A seek always leaves the clock
// running, including a seek issued while paused.
func (c *Clock) Seek(target media.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if target < 0 {
		target = 0
	}
	c.anchorInstant = c.source.Now()
	c.anchorMedia = target
	c.frozen = target
	c.state = StateRunning
}

// State reports whether the clock is running or paused.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Paused is shorthand for State() == StatePaused.
func (c *Clock) Paused() bool {
	return c.State() == StatePaused
}
