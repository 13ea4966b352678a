package topology_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_RoundTrip(t *testing.T) {
	topo := topology.New()
	topo.AddVertex(10, 20)
	topo.AddVertex(30, 40)
	topo.AddVertex(50, 60)
	_, err := topo.AddChannel(0, 1, false)
	require.NoError(t, err)
	_, err = topo.AddChannel(2, 1, true)
	require.NoError(t, err)
	require.NoError(t, topo.SetInitiator(2, true))

	data, err := json.Marshal(topo)
	require.NoError(t, err)

	other := topology.New()
	require.NoError(t, other.Import(data))
	assert.Equal(t, topo.Export(), other.Export())

	v2, _ := other.Vertex(2)
	assert.True(t, v2.IsInitiator())
	assert.Equal(t, domain.Point{X: 50, Y: 60}, v2.Position())
}

func TestExport_Format(t *testing.T) {
	topo := path(t, 2)
	data, err := json.Marshal(topo.Export())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"v":[{"x":0,"y":0,"id":0},{"x":100,"y":0,"id":1}],"e":[{"s":0,"e":1,"u":true}],"i":[]}`,
		string(data))
}

func TestImport_OrdersVerticesByID(t *testing.T) {
	topo := topology.New()
	require.NoError(t, topo.Import([]byte(`{"v":[{"x":5,"y":5,"id":1},{"x":1,"y":1,"id":0}],"e":[],"i":[]}`)))
	v0, _ := topo.Vertex(0)
	assert.Equal(t, domain.Point{X: 1, Y: 1}, v0.Position())
}

func TestImport_IsAtomic(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"v":`},
		{"edge to missing vertex", `{"v":[{"x":0,"y":0,"id":0}],"e":[{"s":0,"e":3,"u":true}],"i":[]}`},
		{"duplicate edge", `{"v":[{"x":0,"y":0,"id":0},{"x":1,"y":0,"id":1}],"e":[{"s":0,"e":1,"u":true},{"s":1,"e":0,"u":false}],"i":[]}`},
		{"self loop", `{"v":[{"x":0,"y":0,"id":0}],"e":[{"s":0,"e":0,"u":false}],"i":[]}`},
		{"id gap", `{"v":[{"x":0,"y":0,"id":0},{"x":1,"y":0,"id":2}],"e":[],"i":[]}`},
		{"repeated id", `{"v":[{"x":0,"y":0,"id":0},{"x":1,"y":0,"id":0}],"e":[],"i":[]}`},
		{"bad initiator", `{"v":[{"x":0,"y":0,"id":0}],"e":[],"i":[4]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := path(t, 3)
			before := topo.Export()

			err := topo.Import([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrImportParse)
			assert.Equal(t, before, topo.Export())
		})
	}
}

func TestImport_DuplicateReportsCause(t *testing.T) {
	topo := topology.New()
	err := topo.Import([]byte(`{"v":[{"x":0,"y":0,"id":0},{"x":1,"y":0,"id":1}],"e":[{"s":0,"e":1,"u":false},{"s":0,"e":1,"u":false}],"i":[]}`))
	assert.ErrorIs(t, err, domain.ErrImportParse)
	assert.ErrorIs(t, err, domain.ErrDuplicateChannel)
}

func TestImport_NotifiesObserversOfReplacedGraph(t *testing.T) {
	topo := path(t, 2)
	rec := &recorder{}
	topo.Observe(rec)

	require.NoError(t, topo.Import([]byte(`{"v":[],"e":[],"i":[]}`)))
	assert.Len(t, rec.vertices, 2)
	assert.Equal(t, 0, topo.Len())
}

func TestDecodeExport(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"v":[{"x":1.5,"y":2,"id":0},{"x":3,"y":4,"id":1}],"e":[{"s":0,"e":1,"u":true}],"i":[0]}`), &raw))

	g, err := topology.DecodeExport(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.GraphExport{
		Vertices:   []domain.VertexExport{{X: 1.5, Y: 2, ID: 0}, {X: 3, Y: 4, ID: 1}},
		Edges:      []domain.EdgeExport{{Start: 0, End: 1, Undirected: true}},
		Initiators: []domain.VertexID{0},
	}, g)

	_, err = topology.DecodeExport(map[string]any{"v": []any{}, "bogus": 1})
	assert.ErrorIs(t, err, domain.ErrImportParse)
}
