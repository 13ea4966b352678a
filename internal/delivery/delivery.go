// Package delivery is the channel delivery model: it decides how long a message spends on a
// channel and schedules its arrival on the virtual clock.
//
// Arrivals follow scheduled arrival time only. Two messages on the same channel may overtake
// each other under jitter; the model does not enforce FIFO channels.
package delivery

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/aretw0/distsim/internal/scheduler"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
	"github.com/aretw0/distsim/pkg/topology"
)

// Timing holds the transit durations of the model.
type Timing struct {
	Transit    time.Duration
	MinTransit time.Duration
	MaxTransit time.Duration
}

// DefaultTiming returns a fixed transit of 4 units and a random range of [1,7] units.
func DefaultTiming() Timing {
	return Timing{
		Transit:    domain.DefaultTransit,
		MinTransit: domain.MinRandomTransit,
		MaxTransit: domain.MaxRandomTransit,
	}
}

// Delivery is one in-flight message.
type Delivery struct {
	Channel  *topology.Channel
	From     *topology.Vertex
	To       *topology.Vertex
	Payload  any
	SentAt   time.Duration
	ArriveAt time.Duration

	timer *scheduler.Timer
	m     *Model
}

// Delay returns the effective transit time of the message.
func (d *Delivery) Delay() time.Duration { return d.ArriveAt - d.SentAt }

// Cancel stops the delivery. Cancelling an arrived or cancelled delivery is a no-op.
func (d *Delivery) Cancel() bool {
	if !d.timer.Stop() {
		return false
	}
	d.m.forget(d)
	return true
}

// Option configures a Model.
type Option func(*Model)

// WithRenderer receives a transit notification for every send.
func WithRenderer(r ports.Renderer) Option {
	return func(m *Model) { m.renderer = r }
}

// WithTiming overrides the default transit durations.
func WithTiming(t Timing) Option {
	return func(m *Model) { m.timing = t }
}

// WithMarker derives the in-transit marker drawn for a payload.
func WithMarker(fn func(payload any) string) Option {
	return func(m *Model) { m.marker = fn }
}

// Model schedules deliveries. It is not safe for concurrent use.
type Model struct {
	sched    *scheduler.Scheduler
	rng      *rand.Rand
	renderer ports.Renderer
	timing   Timing
	marker   func(any) string
	arrive   func(*Delivery)

	random bool
	jitter float64
	cache  map[*topology.Channel]time.Duration

	inflight []*Delivery
}

// New returns a model scheduling on sched and drawing from rng. Arrive is called once for
// every delivery that was not cancelled.
func New(sched *scheduler.Scheduler, rng *rand.Rand, arrive func(*Delivery), opts ...Option) *Model {
	m := &Model{
		sched:    sched,
		rng:      rng,
		renderer: ports.NopRenderer{},
		timing:   DefaultTiming(),
		marker:   defaultMarker,
		arrive:   arrive,
		cache:    make(map[*topology.Channel]time.Duration),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultMarker(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	return ""
}

// Begin starts a run with the given toggles and forgets every cached transit duration.
// Jitter is the per-message fraction in [0,1]; zero disables it.
func (m *Model) Begin(randomTransit bool, jitter float64) {
	m.random = randomTransit
	m.jitter = jitter
	clear(m.cache)
}

// TransitDuration returns the base transit duration of c for the current run.
func (m *Model) TransitDuration(c *topology.Channel) time.Duration {
	if d, ok := m.cache[c]; ok {
		return d
	}
	d := m.timing.Transit
	if m.random {
		span := m.timing.MaxTransit - m.timing.MinTransit
		d = m.timing.MinTransit + time.Duration(m.rng.Float64()*float64(span))
	}
	m.cache[c] = d
	return d
}

// JitterFactor draws 1 + U(-1,1)*jitter, or 1 without jitter.
func (m *Model) JitterFactor() float64 {
	if m.jitter == 0 {
		return 1
	}
	return 1 + (2*m.rng.Float64()-1)*m.jitter
}

// Send schedules payload on c from the given vertex. The caller guarantees that from may
// send on c.
func (m *Model) Send(c *topology.Channel, from *topology.Vertex, payload any) *Delivery {
	to := c.Destination(from)
	if to == nil {
		panic("delivery: " + from.Label() + " cannot send on " + c.Label())
	}
	delay := time.Duration(float64(m.TransitDuration(c)) * m.JitterFactor())
	now := m.sched.Now()
	d := &Delivery{
		Channel:  c,
		From:     from,
		To:       to,
		Payload:  payload,
		SentAt:   now,
		ArriveAt: now + delay,
		m:        m,
	}
	d.timer = m.sched.After(delay, func() {
		m.forget(d)
		m.arrive(d)
	})
	m.inflight = append(m.inflight, d)

	m.renderer.BeginTransit(domain.Transit{
		From:     from.ID(),
		To:       to.ID(),
		Channel:  c.Label(),
		Start:    from.Position(),
		End:      to.Position(),
		Duration: delay,
		Marker:   m.marker(payload),
	})
	return d
}

// CancelChannel cancels every delivery travelling on c.
func (m *Model) CancelChannel(c *topology.Channel) int {
	return m.cancelWhere(func(d *Delivery) bool { return d.Channel == c })
}

// CancelVertex cancels every delivery sent by or addressed to v.
func (m *Model) CancelVertex(v *topology.Vertex) int {
	return m.cancelWhere(func(d *Delivery) bool { return d.From == v || d.To == v })
}

// Reset cancels every delivery and forgets cached transit durations.
func (m *Model) Reset() {
	m.cancelWhere(func(*Delivery) bool { return true })
	clear(m.cache)
}

// InFlight returns the number of scheduled deliveries.
func (m *Model) InFlight() int { return len(m.inflight) }

// Pending returns the scheduled deliveries ordered by arrival time.
func (m *Model) Pending() []*Delivery {
	out := slices.Clone(m.inflight)
	slices.SortStableFunc(out, func(a, b *Delivery) int {
		return cmp.Compare(a.ArriveAt, b.ArriveAt)
	})
	return out
}

func (m *Model) cancelWhere(match func(*Delivery) bool) int {
	n := 0
	for _, d := range slices.Clone(m.inflight) {
		if match(d) && d.Cancel() {
			n++
		}
	}
	return n
}

func (m *Model) forget(d *Delivery) {
	m.inflight = slices.DeleteFunc(m.inflight, func(x *Delivery) bool { return x == d })
}
