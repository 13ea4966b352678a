package topology

import (
	"fmt"
	"slices"

	"github.com/aretw0/distsim/pkg/domain"
)

// Observer is notified when parts of the topology disappear, so in-flight work bound to them
// can be cancelled.
type Observer interface {
	ChannelRemoved(c *Channel)
	VertexRemoved(v *Vertex)
}

// Topology is the mutable graph model. It is not safe for concurrent use; the simulator
// serializes all access through its own lock.
type Topology struct {
	vertices  []*Vertex
	observers []Observer
}

// New returns an empty topology.
func New() *Topology {
	return &Topology{}
}

// Observe registers an observer. The returned function unregisters it.
func (t *Topology) Observe(o Observer) func() {
	t.observers = append(t.observers, o)
	return func() {
		t.observers = slices.DeleteFunc(t.observers, func(x Observer) bool { return x == o })
	}
}

// Len returns the number of vertices.
func (t *Topology) Len() int { return len(t.vertices) }

// Vertices returns the vertices ordered by id.
func (t *Topology) Vertices() []*Vertex {
	out := make([]*Vertex, len(t.vertices))
	copy(out, t.vertices)
	return out
}

// Vertex returns the vertex with the given id.
func (t *Topology) Vertex(id domain.VertexID) (*Vertex, error) {
	if int(id) < 0 || int(id) >= len(t.vertices) {
		return nil, fmt.Errorf("%w: %d", domain.ErrVertexNotFound, id)
	}
	return t.vertices[id], nil
}

// Channels returns every channel once, in the order vertices and their outgoing channels
// were created.
func (t *Topology) Channels() []*Channel {
	seen := make(map[*Channel]bool)
	var out []*Channel
	for _, v := range t.vertices {
		for _, c := range v.out {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Initiators returns the vertices flagged as initiators, ordered by id.
func (t *Topology) Initiators() []*Vertex {
	var out []*Vertex
	for _, v := range t.vertices {
		if v.initiator {
			out = append(out, v)
		}
	}
	return out
}

// AddVertex appends a vertex at the given position. Its id is the previous vertex count.
func (t *Topology) AddVertex(x, y float64) *Vertex {
	v := &Vertex{topo: t, id: len(t.vertices), pos: domain.Point{X: x, Y: y}}
	t.vertices = append(t.vertices, v)
	return v
}

// MoveVertex changes the position of a vertex. Channel lengths follow.
func (t *Topology) MoveVertex(id domain.VertexID, x, y float64) error {
	v, err := t.Vertex(id)
	if err != nil {
		return err
	}
	v.pos = domain.Point{X: x, Y: y}
	return nil
}

// SetInitiator flags or unflags a vertex as initiator.
func (t *Topology) SetInitiator(id domain.VertexID, on bool) error {
	v, err := t.Vertex(id)
	if err != nil {
		return err
	}
	v.initiator = on
	return nil
}

// AddChannel connects a to b. A directed channel only carries messages from a to b.
// Self loops and a second channel between an already connected pair are rejected.
func (t *Topology) AddChannel(a, b domain.VertexID, directed bool) (*Channel, error) {
	va, err := t.Vertex(a)
	if err != nil {
		return nil, err
	}
	vb, err := t.Vertex(b)
	if err != nil {
		return nil, err
	}
	if va == vb || va.OutgoingTo(vb) != nil || (!directed && vb.OutgoingTo(va) != nil) {
		return nil, &domain.DuplicateChannelError{From: a, To: b}
	}
	c := &Channel{start: va, end: vb, undirected: !directed}
	va.out = append(va.out, c)
	vb.in = append(vb.in, c)
	if c.undirected {
		vb.out = append(vb.out, c)
		va.in = append(va.in, c)
	}
	return c, nil
}

// RemoveChannel removes the channel a can send to b on, if any.
// It reports whether a channel was removed.
func (t *Topology) RemoveChannel(a, b domain.VertexID) (bool, error) {
	va, err := t.Vertex(a)
	if err != nil {
		return false, err
	}
	vb, err := t.Vertex(b)
	if err != nil {
		return false, err
	}
	c := va.OutgoingTo(vb)
	if c == nil {
		return false, nil
	}
	t.detach(c)
	return true, nil
}

// RemoveVertex removes a vertex with all its channels. Every vertex with a larger id moves
// down by one. Removing an absent id is a no-op; the result reports whether a vertex went away.
func (t *Topology) RemoveVertex(id domain.VertexID) bool {
	v, err := t.Vertex(id)
	if err != nil {
		return false
	}
	for _, c := range slices.Concat(v.out, v.in) {
		if !c.removed {
			t.detach(c)
		}
	}
	t.vertices = slices.Delete(t.vertices, v.id, v.id+1)
	for i := v.id; i < len(t.vertices); i++ {
		t.vertices[i].id = i
	}
	v.removed = true
	for _, o := range t.observers {
		o.VertexRemoved(v)
	}
	return true
}

// Clear removes every vertex.
func (t *Topology) Clear() {
	for len(t.vertices) > 0 {
		t.RemoveVertex(domain.VertexID(len(t.vertices) - 1))
	}
}

// NeighborsOf returns the distinct vertices adjacent to id in the given direction, in
// channel order.
func (t *Topology) NeighborsOf(id domain.VertexID, dir domain.Direction) ([]*Vertex, error) {
	v, err := t.Vertex(id)
	if err != nil {
		return nil, err
	}
	var out []*Vertex
	add := func(n *Vertex) {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	if dir == domain.Outgoing || dir == domain.Both {
		for _, c := range v.out {
			add(c.Destination(v))
		}
	}
	if dir == domain.Incoming || dir == domain.Both {
		for _, c := range v.in {
			if c.start == v {
				add(c.end)
			} else {
				add(c.start)
			}
		}
	}
	return out, nil
}

func (t *Topology) detach(c *Channel) {
	drop := func(list []*Channel) []*Channel {
		return slices.DeleteFunc(list, func(x *Channel) bool { return x == c })
	}
	c.start.out = drop(c.start.out)
	c.start.in = drop(c.start.in)
	c.end.out = drop(c.end.out)
	c.end.in = drop(c.end.in)
	c.removed = true
	for _, o := range t.observers {
		o.ChannelRemoved(c)
	}
}
