package sandbox_test

import (
	"iter"
	"slices"

	"github.com/aretw0/distsim/pkg/domain"
)

type sent struct {
	Channel string
	Msg     any
}

// fakeProcess is a minimal Process with fixed channels that records what it sends.
type fakeProcess struct {
	id         domain.VertexID
	out, in    []string
	parent     domain.Parent
	terminated bool
	decided    bool
	cues       int
	fields     map[string]any
	sent       []sent
}

func newFake(id domain.VertexID, out, in []string) *fakeProcess {
	return &fakeProcess{id: id, out: out, in: in, fields: map[string]any{}}
}

func (f *fakeProcess) ID() domain.VertexID                { return f.id }
func (f *fakeProcess) String() string                     { return f.id.Label() }
func (f *fakeProcess) OutgoingChannels() iter.Seq[string] { return slices.Values(f.out) }
func (f *fakeProcess) IncomingChannels() iter.Seq[string] { return slices.Values(f.in) }
func (f *fakeProcess) NumOutgoingChannels() int           { return len(f.out) }
func (f *fakeProcess) NumIncomingChannels() int           { return len(f.in) }

func (f *fakeProcess) Send(label string, msg any) error {
	if !slices.Contains(f.out, label) {
		return &domain.UnknownChannelError{Process: f.String(), Channel: label}
	}
	f.sent = append(f.sent, sent{label, msg})
	return nil
}

func (f *fakeProcess) SendEachOutgoingChannel(msg any) error {
	for _, c := range f.out {
		_ = f.Send(c, msg)
	}
	return nil
}

func (f *fakeProcess) SendEachOutgoingChannelExcept(label string, msg any) error {
	for _, c := range f.out {
		if c != label {
			_ = f.Send(c, msg)
		}
	}
	return nil
}

func (f *fakeProcess) SendEachOutgoingChannelExceptParent(msg any) error {
	return f.SendEachOutgoingChannelExcept(f.parent.Channel, msg)
}

func (f *fakeProcess) SendParent(msg any) error {
	if f.parent.Channel == "" {
		return domain.ErrNoParent
	}
	return f.Send(f.parent.Channel, msg)
}

func (f *fakeProcess) SetParent(label string) error {
	f.parent = domain.Parent{Channel: label}
	return nil
}

func (f *fakeProcess) SetParentSelf()        { f.parent = domain.Parent{Self: true} }
func (f *fakeProcess) Parent() domain.Parent { return f.parent }
func (f *fakeProcess) HasParent() bool       { return !f.parent.IsZero() }

func (f *fakeProcess) DistanceTo(label string) (float64, error) {
	if !slices.Contains(f.out, label) && !slices.Contains(f.in, label) {
		return 0, &domain.UnknownChannelError{Process: f.String(), Channel: label}
	}
	return 10, nil
}

func (f *fakeProcess) Terminate()                  { f.terminated = true }
func (f *fakeProcess) Decide()                     { f.terminated, f.decided = true, true }
func (f *fakeProcess) Terminated() bool            { return f.terminated }
func (f *fakeProcess) Decided() bool               { return f.decided }
func (f *fakeProcess) SimulateBlockingProcess()    { f.cues++ }
func (f *fakeProcess) SimulateNonblockingProcess() { f.cues++ }
func (f *fakeProcess) Get(key string) any          { return f.fields[key] }
func (f *fakeProcess) Set(key string, v any) {
	if v == nil {
		delete(f.fields, key)
		return
	}
	f.fields[key] = v
}
