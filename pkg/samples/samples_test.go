package samples_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aretw0/distsim/internal/runtime"
	"github.com/aretw0/distsim/pkg/domain"
	contract "github.com/aretw0/distsim/pkg/ports/tests"
	"github.com/aretw0/distsim/pkg/samples"
	"github.com/aretw0/distsim/pkg/sandbox"
	"github.com/aretw0/distsim/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestLoader_Contract(t *testing.T) {
	data := make(map[string][]byte)
	for _, s := range samples.List() {
		src, err := s.Source()
		require.NoError(t, err)
		data[s.Name] = src
	}
	contract.AlgorithmLoaderContractTest(t, samples.Loader{}, data)
}

func TestLookup(t *testing.T) {
	s, err := samples.Lookup("Chang-Roberts")
	require.NoError(t, err)
	assert.Equal(t, "chang-roberts", s.Name)
	assert.Equal(t, samples.Directed, s.GraphType)

	s, err = samples.Lookup("franklin's")
	require.NoError(t, err)
	assert.Equal(t, samples.Ring, s.GraphType)

	_, err = samples.Lookup("paxos")
	assert.ErrorIs(t, err, domain.ErrSampleNotFound)
}

func TestEverySampleLoads(t *testing.T) {
	for _, s := range samples.List() {
		t.Run(s.Name, func(t *testing.T) {
			sb, err := samples.Load(s.Name, sandbox.WithSeed(1))
			require.NoError(t, err)
			defer sb.Close()
			assert.Equal(t, s.Name, sb.Name)
		})
	}
}

func TestSampleToggles(t *testing.T) {
	sb, err := samples.Load("chang-roberts")
	require.NoError(t, err)
	defer sb.Close()
	assert.True(t, sb.TraversalTimesRandom)
	assert.True(t, sb.ProcessTimesRandom)
	assert.Equal(t, domain.DefaultJitter, sb.TraversalJitter)

	sb, err = samples.Load("echo")
	require.NoError(t, err)
	defer sb.Close()
	assert.Zero(t, sb.TraversalJitter)
}

func settle(t *testing.T, topo *topology.Topology, name string, seed uint64) domain.Report {
	t.Helper()
	sb, err := samples.Load(name, sandbox.WithSeed(seed))
	require.NoError(t, err)
	e := runtime.NewEngine(topo, runtime.WithSeed(seed))
	t.Cleanup(e.Close)

	require.NoError(t, e.Run(ctx, sb))
	report, err := e.Settle(ctx, time.Hour)
	require.NoError(t, err)
	require.True(t, report.Quiescent, "%s did not quiesce", name)
	return report
}

func mesh(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for _, p := range [][2]float64{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {50, 200}} {
		topo.AddVertex(p[0], p[1])
	}
	for _, e := range [][2]domain.VertexID{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 2}, {2, 4}, {3, 4}} {
		_, err := topo.AddChannel(e[0], e[1], false)
		require.NoError(t, err)
	}
	require.NoError(t, topo.SetInitiator(0, true))
	return topo
}

func ring(t *testing.T, n int, directed bool) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		topo.AddVertex(100*math.Cos(a), 100*math.Sin(a))
	}
	for i := range n {
		_, err := topo.AddChannel(domain.VertexID(i), domain.VertexID((i+1)%n), directed)
		require.NoError(t, err)
	}
	return topo
}

func byID(r domain.Report) map[domain.VertexID]domain.ProcessSnapshot {
	out := make(map[domain.VertexID]domain.ProcessSnapshot, len(r.Processes))
	for _, s := range r.Processes {
		out[s.ID] = s
	}
	return out
}

func TestEcho(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		procs := byID(settle(t, mesh(t), "echo", seed))

		root := procs[0]
		assert.Equal(t, domain.StatusTerminated, root.Status)
		assert.True(t, root.Parent.Self)
		for id, s := range procs {
			if id == 0 {
				continue
			}
			assert.NotEmpty(t, s.Parent.Channel, "%s has no parent", s.Label)
			assert.Equal(t, domain.StatusRunning, s.Status)
		}
	}
}

func TestChangRoberts(t *testing.T) {
	topo := ring(t, 5, true)
	for _, v := range topo.Vertices() {
		require.NoError(t, topo.SetInitiator(v.ID(), true))
	}
	procs := byID(settle(t, topo, "chang-roberts", 7))

	for id, s := range procs {
		if id == 4 {
			assert.True(t, s.Decided)
			continue
		}
		assert.False(t, s.Decided, s.Label)
		assert.Equal(t, true, s.Fields["passive"], s.Label)
	}
}

func TestChandyLamport(t *testing.T) {
	for _, s := range settle(t, mesh(t), "chandy-lamport", 3).Processes {
		assert.Equal(t, domain.StatusTerminated, s.Status, s.Label)
		assert.Equal(t, true, s.Fields["recorded"], s.Label)
	}
}

func TestChandyMisra(t *testing.T) {
	topo := topology.New()
	topo.AddVertex(0, 0)
	topo.AddVertex(300, 0)
	topo.AddVertex(100, 100)
	topo.AddVertex(400, 0)
	for _, e := range [][2]domain.VertexID{{0, 1}, {0, 2}, {2, 1}, {1, 3}} {
		_, err := topo.AddChannel(e[0], e[1], false)
		require.NoError(t, err)
	}
	require.NoError(t, topo.SetInitiator(0, true))

	procs := byID(settle(t, topo, "chandy-misra", 11))

	assert.Equal(t, 0.0, procs[0].Fields["dist"])
	assert.InDelta(t, 300.0, procs[1].Fields["dist"], 1e-9)
	assert.InDelta(t, math.Hypot(100, 100), procs[2].Fields["dist"], 1e-9)
	assert.InDelta(t, 400.0, procs[3].Fields["dist"], 1e-9)
	assert.Equal(t, "e0_1", procs[1].Parent.Channel)
	assert.Equal(t, "e1_3", procs[3].Parent.Channel)
}

func TestCidon(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		procs := byID(settle(t, mesh(t), "cidon", seed))
		assert.True(t, procs[0].Decided, "seed %d", seed)
		for id, s := range procs {
			if id != 0 {
				assert.NotEmpty(t, s.Parent.Channel, "%s has no parent (seed %d)", s.Label, seed)
			}
		}
	}
}

func TestFranklin(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		procs := byID(settle(t, ring(t, 6, false), "franklin", seed))
		for id, s := range procs {
			assert.Equal(t, id == 5, s.Decided, "%s (seed %d)", s.Label, seed)
			if id != 5 {
				assert.Equal(t, false, s.Fields["active"], s.Label)
			}
		}
	}
}

func TestTree(t *testing.T) {
	topo := topology.New()
	for i := range 6 {
		topo.AddVertex(float64(i)*50, float64(i%2)*50)
	}
	for _, e := range [][2]domain.VertexID{{0, 1}, {1, 2}, {2, 3}, {1, 4}, {4, 5}} {
		_, err := topo.AddChannel(e[0], e[1], false)
		require.NoError(t, err)
	}

	for seed := uint64(1); seed <= 5; seed++ {
		var roots []domain.VertexID
		for _, s := range settle(t, topo, "tree", seed).Processes {
			if s.Decided {
				roots = append(roots, s.ID)
			}
		}
		require.Len(t, roots, 2, "seed %d", seed)
		adjacent, err := topo.NeighborsOf(roots[0], domain.Both)
		require.NoError(t, err)
		var ids []domain.VertexID
		for _, v := range adjacent {
			ids = append(ids, v.ID())
		}
		assert.Contains(t, ids, roots[1], "twin roots must be neighbours")
	}
}
