// ABOUTME: Wall-clock abstraction used by the playback clock
// ABOUTME: SystemTime for production, FakeTime for deterministic tests
package sync

import (
	"sync"
	"time"
)

// TimeSource yields monotonic wall-clock instants.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the process monotonic clock.
type SystemTime struct{}

// Now returns time.Now.
func (SystemTime) Now() time.Time {
	return time.Now()
}

// FakeTime is a manually advanced TimeSource.
type FakeTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeTime creates a fake source starting at start.
func NewFakeTime(start time.Time) *FakeTime {
	return &FakeTime{now: start}
}

// Now returns the current fake instant.
func (f *FakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake instant forward by d.
func (f *FakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
