package distsim

import (
	"context"
	"time"

	"github.com/aretw0/distsim/pkg/domain"
)

// DefaultInterval is the wall-clock period between two driver steps.
const DefaultInterval = 50 * time.Millisecond

// Driver advances a Simulator in wall-clock time, the way an animation loop would.
// Speed scales simulated time against wall time: at 1, one wall second moves one
// simulated unit.
type Driver struct {
	sim       *Simulator
	interval  time.Duration
	speed     float64
	untilIdle bool
	ticks     <-chan time.Time
	onStep    func(domain.Report)
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithInterval sets the wall-clock period between steps.
func WithInterval(d time.Duration) DriverOption {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = d
		}
	}
}

// WithSpeed sets how many simulated units elapse per wall second.
func WithSpeed(speed float64) DriverOption {
	return func(dr *Driver) {
		if speed > 0 {
			dr.speed = speed
		}
	}
}

// UntilIdle stops the driver once no message is in flight.
func UntilIdle() DriverOption {
	return func(dr *Driver) { dr.untilIdle = true }
}

// WithTicks replaces the wall-clock ticker, mostly for tests.
func WithTicks(c <-chan time.Time) DriverOption {
	return func(dr *Driver) { dr.ticks = c }
}

// OnStep is called with a fresh report after every step.
func OnStep(fn func(domain.Report)) DriverOption {
	return func(dr *Driver) { dr.onStep = fn }
}

// NewDriver creates a driver for sim.
func NewDriver(sim *Simulator, opts ...DriverOption) *Driver {
	d := &Driver{
		sim:      sim,
		interval: DefaultInterval,
		speed:    1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Step returns the simulated duration covered by one driver step.
func (d *Driver) Step() time.Duration {
	return time.Duration(float64(d.interval) / float64(time.Second) * d.speed * float64(domain.Unit))
}

// Run steps the simulation until ctx is done, or until it is idle with UntilIdle.
func (d *Driver) Run(ctx context.Context) error {
	ticks := d.ticks
	if ticks == nil {
		t := time.NewTicker(d.interval)
		defer t.Stop()
		ticks = t.C
	}
	step := d.Step()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
		}
		d.sim.Advance(ctx, step)
		if d.onStep != nil {
			d.onStep(d.sim.Report())
		}
		if d.untilIdle && d.sim.InFlight() == 0 {
			return nil
		}
	}
}
