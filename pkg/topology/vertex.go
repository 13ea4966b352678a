package topology

import (
	"math"

	"github.com/aretw0/distsim/pkg/domain"
)

// Vertex is one node of the topology.
type Vertex struct {
	topo      *Topology
	id        int
	pos       domain.Point
	initiator bool
	out       []*Channel
	in        []*Channel
	removed   bool
}

// ID returns the current position-based id of the vertex.
func (v *Vertex) ID() domain.VertexID { return domain.VertexID(v.id) }

// Label returns the display label, e.g. "p2".
func (v *Vertex) Label() string { return v.ID().Label() }

func (v *Vertex) String() string { return v.Label() }

// Position returns the canvas coordinates of the vertex.
func (v *Vertex) Position() domain.Point { return v.pos }

// IsInitiator reports whether the vertex initiates the algorithm at run start.
func (v *Vertex) IsInitiator() bool { return v.initiator }

// Removed reports whether the vertex was removed from its topology.
func (v *Vertex) Removed() bool { return v.removed }

// Outgoing returns the outgoing channels in creation order.
func (v *Vertex) Outgoing() []*Channel {
	out := make([]*Channel, len(v.out))
	copy(out, v.out)
	return out
}

// Incoming returns the incoming channels in creation order.
func (v *Vertex) Incoming() []*Channel {
	in := make([]*Channel, len(v.in))
	copy(in, v.in)
	return in
}

// NumOutgoing returns the number of outgoing channels.
func (v *Vertex) NumOutgoing() int { return len(v.out) }

// NumIncoming returns the number of incoming channels.
func (v *Vertex) NumIncoming() int { return len(v.in) }

// OutgoingTo returns the channel leading from v to dst, or nil.
func (v *Vertex) OutgoingTo(dst *Vertex) *Channel {
	for _, c := range v.out {
		if c.Destination(v) == dst {
			return c
		}
	}
	return nil
}

// OutgoingByLabel returns the outgoing channel with the given label, or nil.
func (v *Vertex) OutgoingByLabel(label string) *Channel {
	for _, c := range v.out {
		if c.Label() == label {
			return c
		}
	}
	return nil
}

// IncomingByLabel returns the incoming channel with the given label, or nil.
func (v *Vertex) IncomingByLabel(label string) *Channel {
	for _, c := range v.in {
		if c.Label() == label {
			return c
		}
	}
	return nil
}

// Channel is a communication link between two vertices.
type Channel struct {
	start      *Vertex
	end        *Vertex
	undirected bool
	removed    bool
}

// Start returns the vertex the channel was drawn from.
func (c *Channel) Start() *Vertex { return c.start }

// End returns the vertex the channel was drawn to.
func (c *Channel) End() *Vertex { return c.end }

// Undirected reports whether messages may travel in both directions.
func (c *Channel) Undirected() bool { return c.undirected }

// Removed reports whether the channel was removed from its topology.
func (c *Channel) Removed() bool { return c.removed }

// Label returns the label of the channel, e.g. "e3_17".
func (c *Channel) Label() string {
	return domain.ChannelLabel(c.start.ID(), c.end.ID())
}

func (c *Channel) String() string { return c.Label() }

// Length is the Euclidean distance between the endpoints.
func (c *Channel) Length() float64 {
	a, b := c.start.pos, c.end.pos
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Destination returns where a message sent by from travels to, or nil if from cannot send on c.
func (c *Channel) Destination(from *Vertex) *Vertex {
	switch {
	case from == c.start:
		return c.end
	case c.undirected && from == c.end:
		return c.start
	default:
		return nil
	}
}

// IsOutgoingFrom reports whether v can send on the channel.
func (c *Channel) IsOutgoingFrom(v *Vertex) bool {
	return c.Destination(v) != nil
}

// IsIncomingTo reports whether v can receive on the channel.
func (c *Channel) IsIncomingTo(v *Vertex) bool {
	return v == c.end || (c.undirected && v == c.start)
}
