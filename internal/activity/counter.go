package activity

import (
	"sync"
	"time"
)

// Counter accumulates raw interaction events delivered by input callbacks.
// All methods are safe for concurrent use; the record methods only take a
// short mutex and never perform I/O.
type Counter struct {
	mu           sync.Mutex
	clicks       int64
	keyPresses   int64
	sessionStart time.Time
	now          func() time.Time
}

// NewCounter creates a counter whose session starts now. A nil clock
// defaults to time.Now.
func NewCounter(clock func() time.Time) *Counter {
	if clock == nil {
		clock = time.Now
	}
	return &Counter{
		sessionStart: clock(),
		now:          clock,
	}
}

// RecordClick counts one mouse click.
func (c *Counter) RecordClick() {
	c.mu.Lock()
	c.clicks++
	c.mu.Unlock()
}

// RecordKeyPress counts one key-down event.
func (c *Counter) RecordKeyPress() {
	c.mu.Lock()
	c.keyPresses++
	c.mu.Unlock()
}

// HandleClick is the button-transition callback. Only presses count;
// releases are ignored.
func (c *Counter) HandleClick(pressed bool) {
	if pressed {
		c.RecordClick()
	}
}

// SessionStart reports when counting began.
func (c *Counter) SessionStart() time.Time {
	return c.sessionStart
}

// SnapshotCounts returns both counts read under one lock together with the
// minutes elapsed since the session started.
func (c *Counter) SnapshotCounts() Counts {
	c.mu.Lock()
	clicks, keys := c.clicks, c.keyPresses
	c.mu.Unlock()

	elapsed := c.now().Sub(c.sessionStart).Minutes()
	if elapsed < 0 {
		elapsed = 0
	}
	return Counts{
		Clicks:         clicks,
		KeyPresses:     keys,
		ElapsedMinutes: elapsed,
	}
}
