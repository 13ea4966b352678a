package sandbox

import (
	"iter"

	"github.com/aretw0/distsim/pkg/domain"
)

// Process is the restricted view of a simulated process handed to algorithm hooks.
// A process only affects others through the messages it sends.
type Process interface {
	// ID returns the current numeric id of the underlying vertex.
	ID() domain.VertexID
	String() string

	// OutgoingChannels yields the labels of the channels the process can send on.
	// The sequence may be ranged over any number of times.
	OutgoingChannels() iter.Seq[string]
	// IncomingChannels yields the labels of the channels the process receives on.
	IncomingChannels() iter.Seq[string]
	NumOutgoingChannels() int
	NumIncomingChannels() int

	// Send schedules msg on the named outgoing channel. It fails with
	// *domain.UnknownChannelError when the process has no such outgoing channel.
	Send(label string, msg any) error
	SendEachOutgoingChannel(msg any) error
	// SendEachOutgoingChannelExcept skips the named channel. An unknown label skips nothing.
	SendEachOutgoingChannelExcept(label string, msg any) error
	SendEachOutgoingChannelExceptParent(msg any) error
	// SendParent sends on the parent channel. It fails with domain.ErrNoParent when no
	// parent channel was declared, including when the process is its own parent.
	SendParent(msg any) error

	// SetParent declares the process reachable through label as parent.
	SetParent(label string) error
	// SetParentSelf makes the process the root of its tree.
	SetParentSelf()
	Parent() domain.Parent
	HasParent() bool

	// DistanceTo returns the geometric length of the named channel.
	DistanceTo(label string) (float64, error)

	// Terminate and Decide end the process's participation. Both are idempotent.
	Terminate()
	Decide()
	Terminated() bool
	Decided() bool

	// SimulateBlockingProcess and SimulateNonblockingProcess trigger the processing cue.
	// They never affect message timing.
	SimulateBlockingProcess()
	SimulateNonblockingProcess()

	// Get and Set access the process-local field bag.
	Get(key string) any
	Set(key string, value any)
}
