package runtime

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/distsim/internal/clock"
	"github.com/aretw0/distsim/internal/delivery"
	"github.com/aretw0/distsim/internal/logging"
	"github.com/aretw0/distsim/internal/scheduler"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
	"github.com/aretw0/distsim/pkg/sandbox"
	"github.com/aretw0/distsim/pkg/topology"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/distsim/internal/runtime"

// Engine is the simulation orchestrator. It installs a sandbox, creates one Process per
// vertex and moves simulated time forward.
//
// Engine is not safe for concurrent use; callers serialize access (see distsim.Simulator).
type Engine struct {
	topo     *topology.Topology
	clock    *clock.Virtual
	sched    *scheduler.Scheduler
	model    *delivery.Model
	rng      *rand.Rand
	renderer ports.Renderer
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	tracer   trace.Tracer

	seed           uint64
	timing         delivery.Timing
	processTiming  ProcessTiming
	tick           time.Duration
	tracerProvider trace.TracerProvider

	sb      *sandbox.Sandbox
	retired []*sandbox.Sandbox
	procs   map[*topology.Vertex]*Process
	runID   string

	delivered int
	ctx       context.Context
	unobserve func()
}

// NewEngine creates an engine over topo.
func NewEngine(topo *topology.Topology, opts ...EngineOption) *Engine {
	e := &Engine{
		topo:          topo,
		clock:         clock.NewVirtual(),
		renderer:      ports.NopRenderer{},
		logger:        logging.NewNop(),
		seed:          uint64(time.Now().UnixNano()),
		timing:        delivery.DefaultTiming(),
		processTiming: DefaultProcessTiming(),
		tick:          domain.DefaultTick,
		procs:         make(map[*topology.Vertex]*Process),
		ctx:           context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	e.tracer = e.tracerProvider.Tracer(tracerName)
	e.rng = rand.New(rand.NewPCG(e.seed, e.seed>>1|1))
	e.sched = scheduler.New(e.clock)
	e.model = delivery.New(e.sched, e.rng, e.arrive,
		delivery.WithRenderer(e.renderer),
		delivery.WithTiming(e.timing),
		delivery.WithMarker(e.marker),
	)
	e.unobserve = topo.Observe(e)
	return e
}

// Topology returns the graph the engine runs on.
func (e *Engine) Topology() *topology.Topology { return e.topo }

// RunID identifies the current run. It is empty before the first Run and after Reset.
func (e *Engine) RunID() string { return e.runID }

// Now returns the simulated time since the last reset.
func (e *Engine) Now() time.Duration { return e.clock.Now() }

// InFlight returns the number of messages between send and delivery.
func (e *Engine) InFlight() int { return e.model.InFlight() }

// Run installs sb and starts a run: every process is initialized in vertex order, then
// every initiator is initiated in the same order. Run does not wait for the algorithm; time
// moves with Advance, Tick or Settle.
//
// Run does not reset: messages still in flight from an earlier run are delivered to the new
// processes. Call Reset first for a clean run.
func (e *Engine) Run(ctx context.Context, sb *sandbox.Sandbox) error {
	if sb == nil {
		return errors.New("run: nil sandbox")
	}
	e.ctx = ctx
	if e.sb != nil && e.sb != sb {
		e.retired = append(e.retired, e.sb)
	}
	e.sb = sb
	e.runID = uuid.NewString()
	e.model.Begin(sb.TraversalTimesRandom, sb.TraversalJitter)

	for _, p := range e.procs {
		p.stopCue()
	}
	clear(e.procs)
	vertices := e.topo.Vertices()
	for _, v := range vertices {
		e.procs[v] = newProcess(e, v)
	}

	e.logger.InfoContext(ctx, "run started",
		"run_id", e.runID, "sandbox", sb.Name, "vertices", len(vertices),
		"random_transit", sb.TraversalTimesRandom, "jitter", sb.TraversalJitter)

	for _, v := range vertices {
		if p := e.procs[v]; p != nil {
			p.initialize()
		}
	}
	for _, v := range vertices {
		if p := e.procs[v]; p != nil && v.IsInitiator() {
			p.initiate()
		}
	}
	return ctx.Err()
}

// Reset cancels every pending delivery and timer, discards all processes, rewinds the
// clock and restores the baseline rendering. It is idempotent.
func (e *Engine) Reset() {
	e.model.Reset()
	e.sched.Reset()
	for _, p := range e.procs {
		p.stopCue()
	}
	clear(e.procs)
	for _, sb := range e.retired {
		sb.Close()
	}
	e.retired = nil
	if e.sb != nil {
		e.sb.Close()
		e.sb = nil
	}
	if e.runID != "" {
		e.logger.Debug("simulation reset", "run_id", e.runID)
	}
	e.runID = ""
	e.delivered = 0
	e.renderer.Reset()
}

// Close detaches the engine from its topology and releases the sandboxes.
func (e *Engine) Close() {
	e.Reset()
	if e.unobserve != nil {
		e.unobserve()
		e.unobserve = nil
	}
}

// Advance moves simulated time forward by d, delivering every message due on the way.
// It returns the number of timers fired.
func (e *Engine) Advance(ctx context.Context, d time.Duration) int {
	e.ctx = ctx
	return e.sched.Advance(d)
}

// Tick advances by the configured tick duration.
func (e *Engine) Tick(ctx context.Context) int {
	return e.Advance(ctx, e.tick)
}

// TickDuration returns the simulated duration of one Tick.
func (e *Engine) TickDuration() time.Duration { return e.tick }

// Settle advances timer by timer until no message is in flight or horizon has elapsed.
// A run that never quiesces is not an error; the report says so.
func (e *Engine) Settle(ctx context.Context, horizon time.Duration) (domain.Report, error) {
	e.ctx = ctx
	deadline := e.clock.Now() + horizon
	for e.model.InFlight() > 0 {
		if err := ctx.Err(); err != nil {
			return e.Report(), err
		}
		next, ok := e.sched.NextAt()
		if !ok {
			break
		}
		if next > deadline {
			e.sched.AdvanceTo(deadline)
			break
		}
		e.sched.Step()
	}
	return e.Report(), nil
}

// Report summarizes the simulation at the current instant.
func (e *Engine) Report() domain.Report {
	return domain.Report{
		RunID:     e.runID,
		Now:       float64(e.clock.Now()) / float64(domain.Unit),
		InFlight:  e.model.InFlight(),
		Quiescent: e.model.InFlight() == 0,
		Delivered: e.delivered,
		Processes: e.Snapshot(),
	}
}

// Snapshot returns the state of every vertex's process in id order. Vertices added since
// the run started report as created.
func (e *Engine) Snapshot() []domain.ProcessSnapshot {
	vertices := e.topo.Vertices()
	out := make([]domain.ProcessSnapshot, 0, len(vertices))
	for _, v := range vertices {
		if p := e.procs[v]; p != nil {
			out = append(out, p.snapshot())
			continue
		}
		out = append(out, domain.ProcessSnapshot{
			ID:        v.ID(),
			Label:     v.Label(),
			Initiator: v.IsInitiator(),
			Status:    domain.StatusCreated,
		})
	}
	return out
}

// Process returns the process bound to the vertex with the given id.
func (e *Engine) Process(id domain.VertexID) (*Process, bool) {
	v, err := e.topo.Vertex(id)
	if err != nil {
		return nil, false
	}
	p, ok := e.procs[v]
	return p, ok
}

// InFlightMessages lists the messages in transit ordered by arrival time.
func (e *Engine) InFlightMessages() []domain.InFlightMessage {
	pending := e.model.Pending()
	out := make([]domain.InFlightMessage, 0, len(pending))
	for _, d := range pending {
		out = append(out, domain.InFlightMessage{
			From:     d.From.ID(),
			To:       d.To.ID(),
			Channel:  d.Channel.Label(),
			Payload:  e.export(d.Payload),
			SentAt:   d.SentAt,
			ArriveAt: d.ArriveAt,
		})
	}
	return out
}

// ChannelRemoved cancels deliveries on a removed channel.
func (e *Engine) ChannelRemoved(c *topology.Channel) {
	if n := e.model.CancelChannel(c); n > 0 {
		e.logger.Debug("deliveries cancelled", "channel", c.Label(), "count", n)
	}
}

// VertexRemoved cancels deliveries from or to a removed vertex and discards its process.
func (e *Engine) VertexRemoved(v *topology.Vertex) {
	e.model.CancelVertex(v)
	if p, ok := e.procs[v]; ok {
		p.stopCue()
		delete(e.procs, v)
	}
}

func (e *Engine) arrive(d *delivery.Delivery) {
	ctx := e.ctx
	evt := &domain.MessageEvent{
		EventBase: domain.EventBase{RunID: e.runID, At: e.clock.Now()},
		From:      d.From.ID(),
		To:        d.To.ID(),
		Channel:   d.Channel.Label(),
		Payload:   e.export(d.Payload),
		Delay:     d.Delay(),
	}

	p := e.procs[d.To]
	if p == nil || p.status.Final() {
		evt.Type = domain.EventMessageDropped
		e.logger.Debug("message dropped", "to", d.To.Label(), "channel", evt.Channel)
		if e.hooks.OnMessageDropped != nil {
			e.hooks.OnMessageDropped(ctx, evt)
		}
		return
	}

	e.delivered++
	evt.Type = domain.EventMessageDelivered
	if e.hooks.OnMessageDelivered != nil {
		e.hooks.OnMessageDelivered(ctx, evt)
	}
	p.receive(d.Channel.Label(), d.Payload)
}

func (e *Engine) export(v any) any {
	if e.sb == nil {
		return v
	}
	return e.sb.ExportValue(v)
}

func (e *Engine) marker(payload any) string {
	if s, ok := e.export(payload).(string); ok {
		return s
	}
	return ""
}
