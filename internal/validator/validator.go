package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/samples"
)

// ValidateGraph checks that g can host an algorithm written for graphs of the given kind:
// it needs at least one initiator, every process must be reachable from the initiators,
// and the channels must match the shape the algorithm assumes.
func ValidateGraph(g domain.GraphExport, kind samples.GraphType) error {
	n := len(g.Vertices)
	if n == 0 {
		return fmt.Errorf("topology has no processes")
	}

	var errors []string

	out := make([][]domain.VertexID, n)
	// Degrees by channel kind, for the shape checks
	undirected := make([]int, n)
	outgoing := make([]int, n)
	incoming := make([]int, n)
	for _, e := range g.Edges {
		if int(e.Start) >= n || int(e.End) >= n || e.Start < 0 || e.End < 0 {
			errors = append(errors, fmt.Sprintf("Channel %s refers to a missing process", domain.ChannelLabel(e.Start, e.End)))
			continue
		}
		out[e.Start] = append(out[e.Start], e.End)
		if e.Undirected {
			out[e.End] = append(out[e.End], e.Start)
			undirected[e.Start]++
			undirected[e.End]++
		} else {
			outgoing[e.Start]++
			incoming[e.End]++
		}
	}

	if len(g.Initiators) == 0 {
		errors = append(errors, "No initiator: the algorithm would never start")
	}

	// Crawler
	visited := make([]bool, n)
	var queue []domain.VertexID
	for _, id := range g.Initiators {
		if int(id) < n && id >= 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, next := range out[current] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}
	if len(g.Initiators) > 0 {
		for id, ok := range visited {
			if !ok {
				errors = append(errors, fmt.Sprintf("Unreachable process: '%s'", domain.VertexID(id).Label()))
			}
		}
	}

	switch kind {
	case samples.Directed:
		for _, e := range g.Edges {
			if e.Undirected {
				errors = append(errors, fmt.Sprintf("Channel %s is undirected", domain.ChannelLabel(e.Start, e.End)))
			}
		}
	case samples.Ring:
		for id := range n {
			oneWay := undirected[id] == 0 && outgoing[id] == 1 && incoming[id] == 1
			twoWay := undirected[id] == 2 && outgoing[id] == 0 && incoming[id] == 0
			if !oneWay && !twoWay {
				errors = append(errors, fmt.Sprintf("Process '%s' is not on a ring (%d undirected, %d out, %d in)",
					domain.VertexID(id).Label(), undirected[id], outgoing[id], incoming[id]))
			}
		}
	case samples.Acyclic:
		for _, e := range g.Edges {
			if !e.Undirected {
				errors = append(errors, fmt.Sprintf("Channel %s is directed", domain.ChannelLabel(e.Start, e.End)))
			}
		}
		if len(g.Edges) >= n {
			errors = append(errors, fmt.Sprintf("Topology has a cycle (%d channels for %d processes)", len(g.Edges), n))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}

	return nil
}
