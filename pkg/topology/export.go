package topology

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Export captures vertices, channels and initiators in their compact exchange form.
func (t *Topology) Export() domain.GraphExport {
	g := domain.GraphExport{
		Vertices:   make([]domain.VertexExport, 0, len(t.vertices)),
		Edges:      []domain.EdgeExport{},
		Initiators: []domain.VertexID{},
	}
	for _, v := range t.vertices {
		g.Vertices = append(g.Vertices, domain.VertexExport{X: v.pos.X, Y: v.pos.Y, ID: v.ID()})
		if v.initiator {
			g.Initiators = append(g.Initiators, v.ID())
		}
	}
	for _, c := range t.Channels() {
		g.Edges = append(g.Edges, domain.EdgeExport{Start: c.start.ID(), End: c.end.ID(), Undirected: c.undirected})
	}
	return g
}

// MarshalJSON encodes the topology in its exchange form.
func (t *Topology) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Export())
}

// Import replaces the topology with the one encoded in data.
// On error the topology is left untouched.
func (t *Topology) Import(data []byte) error {
	var g domain.GraphExport
	if err := json.Unmarshal(data, &g); err != nil {
		return &domain.ImportParseError{Reason: "malformed document", Cause: err}
	}
	return t.ImportExport(g)
}

// ImportExport replaces the topology with g after validating it completely.
// On error the topology is left untouched.
func (t *Topology) ImportExport(g domain.GraphExport) error {
	if err := Validate(g); err != nil {
		return err
	}
	t.Clear()
	byID := make([]domain.VertexExport, len(g.Vertices))
	for _, v := range g.Vertices {
		byID[v.ID] = v
	}
	for _, v := range byID {
		t.AddVertex(v.X, v.Y)
	}
	for _, e := range g.Edges {
		if _, err := t.AddChannel(e.Start, e.End, !e.Undirected); err != nil {
			// Validate rules out every failure AddChannel can report.
			panic(fmt.Sprintf("topology: validated edge rejected: %v", err))
		}
	}
	for _, id := range g.Initiators {
		t.vertices[id].initiator = true
	}
	return nil
}

// Validate checks that g describes a well formed topology: vertex ids are exactly
// 0..n-1, every edge and initiator refers to a vertex, and no pair is connected twice.
func Validate(g domain.GraphExport) error {
	n := len(g.Vertices)
	seen := make([]bool, n)
	for _, v := range g.Vertices {
		if int(v.ID) < 0 || int(v.ID) >= n {
			return &domain.ImportParseError{Reason: fmt.Sprintf("vertex id %d out of range [0,%d)", v.ID, n)}
		}
		if seen[v.ID] {
			return &domain.ImportParseError{Reason: fmt.Sprintf("vertex id %d repeated", v.ID)}
		}
		seen[v.ID] = true
	}
	inRange := func(id domain.VertexID) bool { return int(id) >= 0 && int(id) < n }
	type pair struct{ a, b domain.VertexID }
	sends := make(map[pair]bool)
	for i, e := range g.Edges {
		if !inRange(e.Start) || !inRange(e.End) {
			return &domain.ImportParseError{Reason: fmt.Sprintf("edge %d refers to a missing vertex", i)}
		}
		if e.Start == e.End || sends[pair{e.Start, e.End}] || (e.Undirected && sends[pair{e.End, e.Start}]) {
			return &domain.ImportParseError{
				Reason: fmt.Sprintf("edge %d", i),
				Cause:  &domain.DuplicateChannelError{From: e.Start, To: e.End},
			}
		}
		sends[pair{e.Start, e.End}] = true
		if e.Undirected {
			sends[pair{e.End, e.Start}] = true
		}
	}
	for _, id := range g.Initiators {
		if !inRange(id) {
			return &domain.ImportParseError{Reason: fmt.Sprintf("initiator %d refers to a missing vertex", id)}
		}
	}
	return nil
}

// DecodeExport converts a loosely typed document (decoded JSON, tool arguments) into a
// GraphExport. Unknown keys are rejected.
func DecodeExport(raw any) (domain.GraphExport, error) {
	var g domain.GraphExport
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &g,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return g, err
	}
	if err := dec.Decode(raw); err != nil {
		return g, &domain.ImportParseError{Reason: "malformed document", Cause: err}
	}
	return g, nil
}
