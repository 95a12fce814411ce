package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a FakeClock: 2024-05-01T12:00:00Z.
var Epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// FakeClock is a manually driven wall clock for tests.
//
// Now returns the same instant until Advance or Set moves it, which lets a
// test pin several operations onto one millisecond tick.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFakeClock creates a clock frozen at start. A zero start uses Epoch.
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FakeClock{now: start}
}

// NewTickingClock creates a clock that advances by step after every Now.
func NewTickingClock(start time.Time, step time.Duration) *FakeClock {
	c := NewFakeClock(start)
	c.step = step
	return c
}

// Now returns the current reading, then applies the auto-advance step.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
