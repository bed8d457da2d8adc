package core

import "time"

// Clock times a batch or a transfer. A running clock reports the time
// since it started, a stopped one the time it ran for.
type Clock struct {
	started time.Time
	frozen  time.Duration
	running bool
}

// StartClock returns a running clock.
func StartClock() *Clock {
	return &Clock{started: time.Now(), running: true}
}

// Stop freezes the elapsed time. Stopping twice keeps the first reading.
func (c *Clock) Stop() time.Duration {
	if c.running {
		c.frozen = time.Since(c.started)
		c.running = false
	}
	return c.frozen
}

func (c *Clock) Elapsed() time.Duration {
	if c.running {
		return time.Since(c.started)
	}
	return c.frozen
}
