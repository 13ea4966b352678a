package distsim_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(n int) <-chan time.Time {
	c := make(chan time.Time, n)
	for range n {
		c <- time.Time{}
	}
	close(c)
	return c
}

func TestDriver_Step(t *testing.T) {
	sim := distsim.New()
	defer sim.Close()

	d := distsim.NewDriver(sim, distsim.WithInterval(100*time.Millisecond), distsim.WithSpeed(4))
	assert.Equal(t, 400*time.Millisecond, d.Step())

	d = distsim.NewDriver(sim, distsim.WithSpeed(-1))
	assert.Equal(t, 50*time.Millisecond, d.Step())
}

func TestDriver_RunsUntilIdle(t *testing.T) {
	sim := distsim.New(distsim.WithSeed(1))
	defer sim.Close()
	path(t, sim, 3)
	require.NoError(t, sim.Run(ctx, echoScript))

	var steps int
	d := distsim.NewDriver(sim,
		distsim.WithInterval(time.Second),
		distsim.WithTicks(feed(100)),
		distsim.UntilIdle(),
		distsim.OnStep(func(domain.Report) { steps++ }),
	)
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, 16, steps)
	assert.Equal(t, 16*domain.Unit, sim.Now())
	assert.Equal(t, domain.StatusTerminated, sim.Snapshot()[0].Status)
}

func TestDriver_StopsWhenTicksEnd(t *testing.T) {
	sim := distsim.New(distsim.WithSeed(1))
	defer sim.Close()
	path(t, sim, 3)
	require.NoError(t, sim.Run(ctx, echoScript))

	d := distsim.NewDriver(sim, distsim.WithInterval(time.Second), distsim.WithTicks(feed(5)))
	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 5*domain.Unit, sim.Now())
	assert.Equal(t, 1, sim.InFlight())
}

func TestDriver_HonoursContext(t *testing.T) {
	sim := distsim.New()
	defer sim.Close()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	d := distsim.NewDriver(sim, distsim.WithTicks(make(chan time.Time)))
	assert.ErrorIs(t, d.Run(cancelled), context.Canceled)
}
