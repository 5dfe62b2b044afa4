package countdown

import (
	"sync"
	"time"
)

// FakeClock is a manually-advanced Clock for tests, in the spirit of
// the simulated keystroke counter: deterministic, no real timers.
type FakeClock struct {
	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
}

// NewFakeClock creates a fake clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{
		now:   start,
		ticks: make(chan time.Time, 64),
	}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake time forward without emitting ticks.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Ticker returns the shared tick channel. The interval is ignored;
// tests drive ticks explicitly.
func (c *FakeClock) Ticker(time.Duration) (<-chan time.Time, func()) {
	return c.ticks, func() {}
}

// EmitTick advances time by one second and delivers a tick.
func (c *FakeClock) EmitTick() {
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	now := c.now
	c.mu.Unlock()
	c.ticks <- now
}
