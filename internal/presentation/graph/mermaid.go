package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/distsim/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a topology.
// It applies semantic styling:
// - Initiator: ((Circle))
// - Default: [Rectangle]
// - Undirected channel: ---, directed channel: -->
// When processes are given (a run report), their parents are drawn as dotted arrows and
// final statuses are styled.
func GenerateMermaid(g domain.GraphExport, processes []domain.ProcessSnapshot) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	initiators := make(map[domain.VertexID]bool, len(g.Initiators))
	for _, id := range g.Initiators {
		initiators[id] = true
	}

	for _, v := range g.Vertices {
		opener, closer := "[", "]"
		if initiators[v.ID] {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", v.ID.Label(), opener, v.ID.Label(), closer)
	}

	// Channel labels resolve parent pointers back to vertices
	ends := make(map[string][2]domain.VertexID, len(g.Edges))
	for _, e := range g.Edges {
		label := domain.ChannelLabel(e.Start, e.End)
		ends[label] = [2]domain.VertexID{e.Start, e.End}
		arrow := "-->"
		if e.Undirected {
			arrow = "---"
		}
		fmt.Fprintf(&sb, "    %s %s|%s| %s\n", e.Start.Label(), arrow, label, e.End.Label())
	}

	if len(processes) == 0 {
		return sb.String()
	}

	sb.WriteString("\n    %% Run Overlay\n")
	for _, p := range processes {
		if p.Parent.Channel == "" {
			continue
		}
		pair, ok := ends[p.Parent.Channel]
		if !ok {
			continue
		}
		parent := pair[0]
		if parent == p.ID {
			parent = pair[1]
		}
		fmt.Fprintf(&sb, "    %s -. parent .-> %s\n", p.ID.Label(), parent.Label())
	}

	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef running fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef terminated fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef decided fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef errored fill:#ffcdd2,stroke:#c62828,stroke-width:2px,color:#000;\n")
	for _, p := range processes {
		if class := classOf(p); class != "" {
			fmt.Fprintf(&sb, "    class %s %s;\n", p.ID.Label(), class)
		}
	}
	return sb.String()
}

func classOf(p domain.ProcessSnapshot) string {
	switch {
	case p.Decided:
		return "decided"
	case p.Status == domain.StatusTerminated:
		return "terminated"
	case p.Status == domain.StatusErrored:
		return "errored"
	case p.Status == domain.StatusRunning:
		return "running"
	default:
		return ""
	}
}
