package topology_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// path builds p0 - p1 - ... - p(n-1) with undirected channels.
func path(t *testing.T, n int) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for i := 0; i < n; i++ {
		topo.AddVertex(float64(i*100), 0)
	}
	for i := 0; i+1 < n; i++ {
		_, err := topo.AddChannel(domain.VertexID(i), domain.VertexID(i+1), false)
		require.NoError(t, err)
	}
	return topo
}

func assertDenseIDs(t *testing.T, topo *topology.Topology) {
	t.Helper()
	for i, v := range topo.Vertices() {
		assert.Equal(t, domain.VertexID(i), v.ID())
	}
}

func TestAddVertex_AssignsSequentialIDs(t *testing.T) {
	topo := topology.New()
	a := topo.AddVertex(0, 0)
	b := topo.AddVertex(10, 0)

	assert.Equal(t, domain.VertexID(0), a.ID())
	assert.Equal(t, domain.VertexID(1), b.ID())
	assert.Equal(t, "p1", b.Label())
	assert.Equal(t, 2, topo.Len())
}

func TestRemoveVertex_Renumbers(t *testing.T) {
	topo := path(t, 4)
	last, _ := topo.Vertex(3)

	require.True(t, topo.RemoveVertex(1))
	assert.False(t, topo.RemoveVertex(9))

	assertDenseIDs(t, topo)
	assert.Equal(t, domain.VertexID(2), last.ID())
	assert.Equal(t, "p2", last.Label())

	// p1 was removed along with its two channels; only the old p2-p3 channel survives.
	chans := topo.Channels()
	require.Len(t, chans, 1)
	assert.Equal(t, "e1_2", chans[0].Label())
}

func TestRemoveVertex_RandomSequencesKeepIDsDense(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	topo := topology.New()
	for step := 0; step < 500; step++ {
		switch op := rng.IntN(4); {
		case op < 2 || topo.Len() < 2:
			topo.AddVertex(rng.Float64()*500, rng.Float64()*500)
		case op == 2:
			a := domain.VertexID(rng.IntN(topo.Len()))
			b := domain.VertexID(rng.IntN(topo.Len()))
			_, err := topo.AddChannel(a, b, rng.IntN(2) == 0)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrDuplicateChannel)
			}
		default:
			require.True(t, topo.RemoveVertex(domain.VertexID(rng.IntN(topo.Len()))))
		}
		assertDenseIDs(t, topo)
	}
}

func TestUndirectedChannel_IsSymmetric(t *testing.T) {
	topo := topology.New()
	a := topo.AddVertex(0, 0)
	b := topo.AddVertex(3, 4)

	c, err := topo.AddChannel(0, 1, false)
	require.NoError(t, err)

	for _, v := range []*topology.Vertex{a, b} {
		assert.Contains(t, v.Outgoing(), c)
		assert.Contains(t, v.Incoming(), c)
	}
	assert.Same(t, b, c.Destination(a))
	assert.Same(t, a, c.Destination(b))
	assert.Equal(t, "e0_1", c.Label())
	assert.Same(t, c, b.OutgoingByLabel("e0_1"))
	assert.InDelta(t, 5.0, c.Length(), 1e-9)
}

func TestDirectedChannel_OneWay(t *testing.T) {
	topo := topology.New()
	a := topo.AddVertex(0, 0)
	b := topo.AddVertex(1, 0)

	c, err := topo.AddChannel(0, 1, true)
	require.NoError(t, err)

	assert.Equal(t, []*topology.Channel{c}, a.Outgoing())
	assert.Empty(t, a.Incoming())
	assert.Empty(t, b.Outgoing())
	assert.Equal(t, []*topology.Channel{c}, b.Incoming())
	assert.Nil(t, c.Destination(b))

	// The reverse direction is a distinct channel.
	back, err := topo.AddChannel(1, 0, true)
	require.NoError(t, err)
	assert.Equal(t, "e1_0", back.Label())
}

func TestAddChannel_RejectsDuplicates(t *testing.T) {
	topo := path(t, 2)

	tests := []struct {
		name     string
		a, b     domain.VertexID
		directed bool
	}{
		{"same undirected", 0, 1, false},
		{"reverse undirected", 1, 0, false},
		{"directed over undirected", 0, 1, true},
		{"reverse directed over undirected", 1, 0, true},
		{"self loop", 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := topo.AddChannel(tt.a, tt.b, tt.directed)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDuplicateChannel)
			var dup *domain.DuplicateChannelError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tt.a, dup.From)
		})
	}
	assert.Len(t, topo.Channels(), 1)
}

func TestAddChannel_UnknownVertex(t *testing.T) {
	topo := path(t, 2)
	_, err := topo.AddChannel(0, 9, false)
	assert.ErrorIs(t, err, domain.ErrVertexNotFound)
}

func TestRemoveChannel(t *testing.T) {
	topo := path(t, 3)

	removed, err := topo.RemoveChannel(2, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = topo.RemoveChannel(2, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	v1, _ := topo.Vertex(1)
	assert.Equal(t, 1, v1.NumOutgoing())
	assert.Equal(t, 1, v1.NumIncoming())
}

type recorder struct {
	channels []string
	vertices []domain.VertexID
}

func (r *recorder) ChannelRemoved(c *topology.Channel) { r.channels = append(r.channels, c.Label()) }
func (r *recorder) VertexRemoved(v *topology.Vertex)   { r.vertices = append(r.vertices, v.ID()) }

func TestObserve_NotifiesRemovals(t *testing.T) {
	topo := path(t, 3)
	rec := &recorder{}
	stop := topo.Observe(rec)

	require.True(t, topo.RemoveVertex(1))
	assert.ElementsMatch(t, []string{"e0_1", "e1_2"}, rec.channels)
	assert.Equal(t, []domain.VertexID{1}, rec.vertices)

	stop()
	topo.Clear()
	assert.Len(t, rec.vertices, 1)
}

func TestNeighborsOf(t *testing.T) {
	topo := topology.New()
	for i := 0; i < 3; i++ {
		topo.AddVertex(0, 0)
	}
	_, _ = topo.AddChannel(0, 1, true)
	_, _ = topo.AddChannel(2, 0, true)

	out, err := topo.NeighborsOf(0, domain.Outgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.VertexID(1), out[0].ID())

	in, _ := topo.NeighborsOf(0, domain.Incoming)
	require.Len(t, in, 1)
	assert.Equal(t, domain.VertexID(2), in[0].ID())

	both, _ := topo.NeighborsOf(0, domain.Both)
	assert.Len(t, both, 2)
}
