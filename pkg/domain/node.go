package domain

import "fmt"

// VertexID is the position of a vertex in its topology.
// IDs are renumbered when an earlier vertex is removed.
type VertexID int

// Label returns the display label of the vertex, e.g. "p3".
func (id VertexID) Label() string {
	return fmt.Sprintf("p%d", int(id))
}

// Point is a position on the (simulated) canvas.
type Point struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
}

// ChannelLabel returns the label of a channel from start to end, e.g. "e0_1".
// Undirected channels keep the label of the direction they were created in.
func ChannelLabel(start, end VertexID) string {
	return fmt.Sprintf("e%d_%d", int(start), int(end))
}

// Direction selects which neighbors of a vertex to enumerate.
type Direction int

const (
	// Outgoing selects vertices reachable through an outgoing channel.
	Outgoing Direction = iota
	// Incoming selects vertices that can reach this vertex through a channel.
	Incoming
	// Both selects the union of Outgoing and Incoming.
	Both
)

// GraphTypes used by the sample library to describe the topology an algorithm expects.
const (
	GraphGeneric  = "generic"
	GraphDirected = "directed"
	GraphRing     = "ring"
	GraphAcyclic  = "acyclic"
)
