// Package clock provides the simulated time source. Nothing in the engine reads the wall
// clock; drivers decide how fast simulated time moves.
package clock

import "time"

// Virtual is a manually advanced clock. The zero value is ready to use.
type Virtual struct {
	now time.Duration
}

// NewVirtual returns a clock at time zero.
func NewVirtual() *Virtual {
	return &Virtual{}
}

func (c *Virtual) Now() time.Duration {
	return c.now
}

// Advance moves the clock forward. Negative durations are ignored: simulated time never
// runs backwards.
func (c *Virtual) Advance(d time.Duration) {
	if d > 0 {
		c.now += d
	}
}

// Set jumps to t if it lies in the future.
func (c *Virtual) Set(t time.Duration) {
	if t > c.now {
		c.now = t
	}
}

func (c *Virtual) Reset() {
	c.now = 0
}
