package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/distsim/internal/runtime"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/sandbox"
	"github.com/aretw0/distsim/pkg/topology"
	"github.com/stretchr/testify/require"
)

type progress struct {
	ID       domain.VertexID
	Fraction float64
	Blocking bool
}

type recordingRenderer struct {
	transits []domain.Transit
	progress []progress
	statuses map[domain.VertexID][]domain.ProcessStatus
	parents  map[domain.VertexID]domain.Parent
	resets   int
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{
		statuses: map[domain.VertexID][]domain.ProcessStatus{},
		parents:  map[domain.VertexID]domain.Parent{},
	}
}

func (r *recordingRenderer) BeginTransit(t domain.Transit) { r.transits = append(r.transits, t) }
func (r *recordingRenderer) ProcessProgress(id domain.VertexID, f float64, blocking bool) {
	r.progress = append(r.progress, progress{id, f, blocking})
}
func (r *recordingRenderer) ProcessStatus(id domain.VertexID, s domain.ProcessStatus, decided bool) {
	r.statuses[id] = append(r.statuses[id], s)
}
func (r *recordingRenderer) ParentChanged(id domain.VertexID, p domain.Parent) { r.parents[id] = p }
func (r *recordingRenderer) Reset()                                            { r.resets++ }

// pathTopology builds p0 - p1 - ... with undirected channels, p0 initiating.
func pathTopology(t *testing.T, n int) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for i := 0; i < n; i++ {
		topo.AddVertex(float64(i)*100, 0)
	}
	for i := 0; i+1 < n; i++ {
		_, err := topo.AddChannel(domain.VertexID(i), domain.VertexID(i+1), false)
		require.NoError(t, err)
	}
	require.NoError(t, topo.SetInitiator(0, true))
	return topo
}

// ringTopology builds the directed cycle p0 -> p1 -> ... -> p0 with every vertex initiating.
func ringTopology(t *testing.T, n int) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for i := 0; i < n; i++ {
		topo.AddVertex(float64(i)*100, 0)
		require.NoError(t, topo.SetInitiator(domain.VertexID(i), true))
	}
	for i := 0; i < n; i++ {
		_, err := topo.AddChannel(domain.VertexID(i), domain.VertexID((i+1)%n), true)
		require.NoError(t, err)
	}
	return topo
}

func echo(t *testing.T) *sandbox.Sandbox {
	t.Helper()
	sb, err := sandbox.Define("echo", func(r *sandbox.Registrar) {
		r.OnInitializationDo(func(p sandbox.Process) error {
			p.Set("received", 0)
			return nil
		})
		r.OnInitiationDo(func(p sandbox.Process) error {
			p.SetParentSelf()
			return p.SendEachOutgoingChannel("<wave>")
		})
		r.OnReceivingMessageDo(func(p sandbox.Process, msg any, q string) error {
			if msg != "<wave>" {
				return nil
			}
			n := p.Get("received").(int) + 1
			p.Set("received", n)
			if !p.HasParent() {
				if err := p.SetParent(q); err != nil {
					return err
				}
				for r := range p.OutgoingChannels() {
					if r == q {
						continue
					}
					if err := p.Send(r, "<wave>"); err != nil {
						return err
					}
				}
			}
			if n == p.NumOutgoingChannels() {
				if p.Parent().Self {
					p.Terminate()
					return nil
				}
				return p.SendParent("<wave>")
			}
			return nil
		})
	})
	require.NoError(t, err)
	return sb
}

func changRoberts(t *testing.T) *sandbox.Sandbox {
	t.Helper()
	sb, err := sandbox.Define("chang-roberts", func(r *sandbox.Registrar) {
		r.OnInitiationDo(func(p sandbox.Process) error {
			return p.SendEachOutgoingChannel(int(p.ID()))
		})
		r.OnReceivingMessageDo(func(p sandbox.Process, msg any, q string) error {
			id := msg.(int)
			switch {
			case id > int(p.ID()):
				p.Set("passive", true)
				return p.SendEachOutgoingChannel(id)
			case id == int(p.ID()):
				p.Decide()
			}
			return nil
		})
	})
	require.NoError(t, err)
	return sb
}

func newEngine(topo *topology.Topology, opts ...runtime.EngineOption) *runtime.Engine {
	opts = append([]runtime.EngineOption{runtime.WithSeed(42)}, opts...)
	return runtime.NewEngine(topo, opts...)
}

func snapshotOf(t *testing.T, e *runtime.Engine, id domain.VertexID) domain.ProcessSnapshot {
	t.Helper()
	for _, s := range e.Snapshot() {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("no snapshot for %s", id.Label())
	return domain.ProcessSnapshot{}
}

var ctx = context.Background()
