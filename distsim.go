package distsim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/distsim/internal/delivery"
	"github.com/aretw0/distsim/internal/logging"
	"github.com/aretw0/distsim/internal/runtime"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
	"github.com/aretw0/distsim/pkg/samples"
	"github.com/aretw0/distsim/pkg/sandbox"
	"github.com/aretw0/distsim/pkg/topology"
	"go.opentelemetry.io/otel/trace"
)

// Version of the simulator.
const Version = "0.4.0"

// Simulator is the high-level entry point. It owns a topology and the engine running
// algorithms on it, and serializes every call so it can be shared between goroutines
// (a driver, an HTTP handler, a TUI).
type Simulator struct {
	mu     sync.Mutex
	topo   *topology.Topology
	engine *runtime.Engine

	loader      ports.AlgorithmLoader
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	renderer    ports.Renderer
	seed        uint64
	seeded      bool
	hookTimeout time.Duration
	runtimeOpts []runtime.EngineOption
	runs        uint64

	Name string
}

// Option defines a functional option for configuring the Simulator.
type Option func(*Simulator)

// WithName labels the simulator in logs.
func WithName(name string) Option {
	return func(s *Simulator) { s.Name = name }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Simulator) { s.hooks = hooks }
}

// WithLogger sets a custom structured logger. Script print output goes there too.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// WithRenderer attaches a renderer to the engine.
func WithRenderer(r ports.Renderer) Option {
	return func(s *Simulator) { s.renderer = r }
}

// WithLoader replaces the algorithm source used by RunSample (default: the bundled samples).
func WithLoader(l ports.AlgorithmLoader) Option {
	return func(s *Simulator) { s.loader = l }
}

// WithTopology runs on an existing topology instead of an empty one.
func WithTopology(t *topology.Topology) Option {
	return func(s *Simulator) { s.topo = t }
}

// WithSeed makes transit draws, process times and math.random inside scripts reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		s.seed = seed
		s.seeded = true
	}
}

// WithTransit overrides the fixed transit duration and the random range.
func WithTransit(fixed, lo, hi time.Duration) Option {
	return func(s *Simulator) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithTiming(delivery.Timing{
			Transit:    fixed,
			MinTransit: lo,
			MaxTransit: hi,
		}))
	}
}

// WithProcessTime overrides the duration of the processing cue and its number of steps.
func WithProcessTime(fixed, lo, hi time.Duration, steps int) Option {
	return func(s *Simulator) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithProcessTiming(runtime.ProcessTiming{
			Default: fixed,
			Min:     lo,
			Max:     hi,
			Steps:   steps,
		}))
	}
}

// WithTick sets the simulated duration of one Tick.
func WithTick(d time.Duration) Option {
	return func(s *Simulator) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithTick(d))
	}
}

// WithHookTimeout bounds the evaluation of a script and of each of its hook calls.
func WithHookTimeout(d time.Duration) Option {
	return func(s *Simulator) { s.hookTimeout = d }
}

// WithTracerProvider records a span around every hook invocation.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Simulator) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithTracerProvider(tp))
	}
}

// New creates a Simulator over an empty topology unless WithTopology is given.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		loader:      samples.Loader{},
		renderer:    ports.NopRenderer{},
		seed:        uint64(time.Now().UnixNano()),
		hookTimeout: sandbox.DefaultHookTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.topo == nil {
		s.topo = topology.New()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.Name != "" {
		s.logger = s.logger.With("simulation", s.Name)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
		runtime.WithRenderer(s.renderer),
		runtime.WithSeed(s.seed),
	}
	s.engine = runtime.NewEngine(s.topo, append(runtimeOpts, s.runtimeOpts...)...)
	return s
}

// Seeded reports whether the simulator was created with a fixed seed.
func (s *Simulator) Seeded() bool { return s.seeded }

// Run evaluates a Lua algorithm script and starts a run with it.
func (s *Simulator) Run(ctx context.Context, source string) error {
	return s.run(ctx, "script", source)
}

// RunSample loads the named algorithm from the configured loader and starts a run.
func (s *Simulator) RunSample(ctx context.Context, name string) error {
	src, err := s.loader.GetAlgorithm(name)
	if err != nil {
		return err
	}
	return s.run(ctx, name, string(src))
}

func (s *Simulator) run(ctx context.Context, name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs++
	sb, err := sandbox.Load(source,
		sandbox.WithName(name),
		sandbox.WithLogger(s.logger),
		sandbox.WithSeed(s.seed+s.runs),
		sandbox.WithHookTimeout(s.hookTimeout),
	)
	if err != nil {
		return err
	}
	return s.engine.Run(ctx, sb)
}

// RunSandbox starts a run with an already built sandbox, typically one from sandbox.Define.
func (s *Simulator) RunSandbox(ctx context.Context, sb *sandbox.Sandbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Run(ctx, sb)
}

// Reset cancels all deliveries and timers and discards the processes. The topology stays.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Reset()
}

// Close resets the simulation and releases the interpreters.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Close()
}

// Advance moves simulated time forward by d.
func (s *Simulator) Advance(ctx context.Context, d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Advance(ctx, d)
}

// Tick advances simulated time by one tick.
func (s *Simulator) Tick(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Tick(ctx)
}

// TickDuration is the simulated duration of one Tick.
func (s *Simulator) TickDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.TickDuration()
}

// Settle advances until no message is in flight or horizon has elapsed.
func (s *Simulator) Settle(ctx context.Context, horizon time.Duration) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Settle(ctx, horizon)
}

// Report summarizes the simulation at the current instant.
func (s *Simulator) Report() domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Report()
}

// Snapshot returns the state of every process in vertex order.
func (s *Simulator) Snapshot() []domain.ProcessSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Now returns the simulated time since the last reset.
func (s *Simulator) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Now()
}

// InFlight returns the number of messages in transit.
func (s *Simulator) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.InFlight()
}

// InFlightMessages lists the messages in transit by arrival time.
func (s *Simulator) InFlightMessages() []domain.InFlightMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.InFlightMessages()
}

// RunID identifies the current run, empty when idle.
func (s *Simulator) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.RunID()
}

// Loader returns the algorithm source used by RunSample.
func (s *Simulator) Loader() ports.AlgorithmLoader { return s.loader }

// AddVertex places a new process at (x, y) and returns its id.
func (s *Simulator) AddVertex(x, y float64) domain.VertexID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.AddVertex(x, y).ID()
}

// RemoveVertex deletes a vertex and its channels. Higher ids shift down by one.
func (s *Simulator) RemoveVertex(id domain.VertexID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.RemoveVertex(id)
}

// MoveVertex changes the position of a vertex and with it the length of its channels.
func (s *Simulator) MoveVertex(id domain.VertexID, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.MoveVertex(id, x, y)
}

// SetInitiator marks or unmarks a vertex as initiator of the next run.
func (s *Simulator) SetInitiator(id domain.VertexID, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.SetInitiator(id, on)
}

// AddChannel connects a to b and returns the channel label.
func (s *Simulator) AddChannel(a, b domain.VertexID, directed bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.topo.AddChannel(a, b, directed)
	if err != nil {
		return "", err
	}
	return c.Label(), nil
}

// RemoveChannel removes the channel from a to b.
func (s *Simulator) RemoveChannel(a, b domain.VertexID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.RemoveChannel(a, b)
}

// Clear removes every vertex and channel.
func (s *Simulator) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topo.Clear()
}

// Export returns the topology in its interchange format.
func (s *Simulator) Export() domain.GraphExport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.Export()
}

// Import replaces the topology with a JSON document. On error the topology is untouched.
func (s *Simulator) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.Import(data)
}

// ImportExport replaces the topology with g. On error the topology is untouched.
func (s *Simulator) ImportExport(g domain.GraphExport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topo.ImportExport(g)
}

// Neighbors lists the ids adjacent to id in the given direction.
func (s *Simulator) Neighbors(id domain.VertexID, dir domain.Direction) ([]domain.VertexID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs, err := s.topo.NeighborsOf(id, dir)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.VertexID, len(vs))
	for i, v := range vs {
		ids[i] = v.ID()
	}
	return ids, nil
}

// WithTopologyLocked calls fn with the topology while holding the simulator lock.
// fn must not call back into the Simulator.
func (s *Simulator) WithTopologyLocked(fn func(*topology.Topology) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.topo)
}
