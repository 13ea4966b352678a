package runtime

import (
	"fmt"
	"iter"

	"github.com/aretw0/distsim/internal/scheduler"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/sandbox"
	"github.com/aretw0/distsim/pkg/topology"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ sandbox.Process = (*Process)(nil)

// Process is the simulation agent bound to one vertex for one run.
type Process struct {
	e *Engine
	v *topology.Vertex

	status   domain.ProcessStatus
	decided  bool
	root     bool
	parent   *topology.Channel
	fields   map[string]any
	sent     int
	received int
	err      *domain.HookError

	cue []*scheduler.Timer
}

func newProcess(e *Engine, v *topology.Vertex) *Process {
	return &Process{
		e:      e,
		v:      v,
		status: domain.StatusCreated,
		fields: make(map[string]any),
	}
}

// Status returns the lifecycle stage of the process.
func (p *Process) Status() domain.ProcessStatus { return p.status }

// Err returns the failure that moved the process to errored, or nil.
func (p *Process) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

func (p *Process) ID() domain.VertexID { return p.v.ID() }

func (p *Process) String() string { return p.v.Label() }

func (p *Process) OutgoingChannels() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, c := range p.v.Outgoing() {
			if !yield(c.Label()) {
				return
			}
		}
	}
}

func (p *Process) IncomingChannels() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, c := range p.v.Incoming() {
			if !yield(c.Label()) {
				return
			}
		}
	}
}

func (p *Process) NumOutgoingChannels() int { return p.v.NumOutgoing() }

func (p *Process) NumIncomingChannels() int { return p.v.NumIncoming() }

func (p *Process) Send(label string, msg any) error {
	if err := checkPayload(msg); err != nil {
		return err
	}
	c := p.v.OutgoingByLabel(label)
	if c == nil {
		return &domain.UnknownChannelError{Process: p.String(), Channel: label}
	}
	p.send(c, msg)
	return nil
}

func (p *Process) SendEachOutgoingChannel(msg any) error {
	if err := checkPayload(msg); err != nil {
		return err
	}
	for _, c := range p.v.Outgoing() {
		p.send(c, msg)
	}
	return nil
}

func (p *Process) SendEachOutgoingChannelExcept(label string, msg any) error {
	if err := checkPayload(msg); err != nil {
		return err
	}
	for _, c := range p.v.Outgoing() {
		if c.Label() != label {
			p.send(c, msg)
		}
	}
	return nil
}

func (p *Process) SendEachOutgoingChannelExceptParent(msg any) error {
	if err := checkPayload(msg); err != nil {
		return err
	}
	for _, c := range p.v.Outgoing() {
		if c != p.parentChannel() {
			p.send(c, msg)
		}
	}
	return nil
}

func (p *Process) SendParent(msg any) error {
	if err := checkPayload(msg); err != nil {
		return err
	}
	c := p.parentChannel()
	if c == nil {
		return fmt.Errorf("%s: %w", p, domain.ErrNoParent)
	}
	if !c.IsOutgoingFrom(p.v) {
		return &domain.UnknownChannelError{Process: p.String(), Channel: c.Label()}
	}
	p.send(c, msg)
	return nil
}

// checkPayload rejects messages holding a process, at any depth of the plain Go containers.
// A receiver holding one could read and write the sender's fields.
func checkPayload(msg any) error {
	switch x := msg.(type) {
	case sandbox.Process:
		return fmt.Errorf("%s: %w", x, domain.ErrProcessPayload)
	case []any:
		for _, e := range x {
			if err := checkPayload(e); err != nil {
				return err
			}
		}
	case map[string]any:
		for _, e := range x {
			if err := checkPayload(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Process) send(c *topology.Channel, msg any) {
	d := p.e.model.Send(c, p.v, msg)
	p.sent++
	if p.e.hooks.OnMessageSent != nil {
		p.e.hooks.OnMessageSent(p.e.ctx, &domain.MessageEvent{
			EventBase: domain.EventBase{Type: domain.EventMessageSent, RunID: p.e.runID, At: d.SentAt},
			From:      d.From.ID(),
			To:        d.To.ID(),
			Channel:   c.Label(),
			Payload:   p.e.export(msg),
			Delay:     d.Delay(),
		})
	}
}

// SetParent accepts the label of any channel the process sends or receives on.
func (p *Process) SetParent(label string) error {
	c := p.v.OutgoingByLabel(label)
	if c == nil {
		c = p.v.IncomingByLabel(label)
	}
	if c == nil {
		return &domain.UnknownChannelError{Process: p.String(), Channel: label}
	}
	p.root, p.parent = false, c
	p.e.renderer.ParentChanged(p.ID(), p.Parent())
	return nil
}

func (p *Process) SetParentSelf() {
	p.root, p.parent = true, nil
	p.e.renderer.ParentChanged(p.ID(), p.Parent())
}

func (p *Process) Parent() domain.Parent {
	if p.root {
		return domain.Parent{Self: true}
	}
	if c := p.parentChannel(); c != nil {
		return domain.Parent{Channel: c.Label()}
	}
	return domain.Parent{}
}

func (p *Process) HasParent() bool { return !p.Parent().IsZero() }

// parentChannel returns the declared parent channel unless it has been removed since.
func (p *Process) parentChannel() *topology.Channel {
	if p.parent == nil || p.parent.Removed() {
		return nil
	}
	return p.parent
}

func (p *Process) DistanceTo(label string) (float64, error) {
	c := p.v.OutgoingByLabel(label)
	if c == nil {
		c = p.v.IncomingByLabel(label)
	}
	if c == nil {
		return 0, &domain.UnknownChannelError{Process: p.String(), Channel: label}
	}
	return c.Length(), nil
}

func (p *Process) Terminate() {
	if p.status.Final() {
		return
	}
	p.stopCue()
	p.setStatus(domain.StatusTerminated)
}

func (p *Process) Decide() {
	if p.status.Final() {
		return
	}
	p.decided = true
	p.Terminate()
}

func (p *Process) Terminated() bool { return p.status == domain.StatusTerminated }

func (p *Process) Decided() bool { return p.decided }

func (p *Process) Get(key string) any { return p.fields[key] }

func (p *Process) Set(key string, value any) {
	if value == nil {
		delete(p.fields, key)
		return
	}
	p.fields[key] = value
}

func (p *Process) initialize() {
	if p.e.sb.Initializer != nil {
		p.runHook(domain.HookInitialize, func() error { return p.e.sb.Initializer(p) })
	}
	if p.status == domain.StatusCreated {
		p.setStatus(domain.StatusInitialized)
	}
}

func (p *Process) initiate() {
	if p.status.Final() {
		return
	}
	p.setStatus(domain.StatusRunning)
	if p.e.sb.Initiator != nil {
		p.runHook(domain.HookInitiate, func() error { return p.e.sb.Initiator(p) })
	}
}

func (p *Process) receive(channel string, msg any) {
	p.received++
	if p.status != domain.StatusRunning {
		p.setStatus(domain.StatusRunning)
	}
	if p.e.sb.Receiver != nil {
		p.runHook(domain.HookReceive, func() error { return p.e.sb.Receiver(p, msg, channel) })
	}
}

// runHook invokes user code, turning errors and panics into an errored process.
func (p *Process) runHook(hook string, fn func() error) {
	ctx, span := p.e.tracer.Start(p.e.ctx, "distsim."+hook,
		trace.WithAttributes(
			attribute.String("distsim.run_id", p.e.runID),
			attribute.Int("distsim.vertex", int(p.ID())),
			attribute.String("distsim.hook", hook),
		))
	defer span.End()

	err := protect(fn)
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	p.err = &domain.HookError{VertexID: p.ID(), Hook: hook, Cause: err}
	p.stopCue()
	p.e.logger.WarnContext(ctx, "hook failed", "run_id", p.e.runID, "vertex", p.String(), "hook", hook, "error", err)
	if p.e.hooks.OnHookError != nil {
		p.e.hooks.OnHookError(ctx, &domain.HookErrorEvent{
			EventBase: domain.EventBase{Type: domain.EventHookError, RunID: p.e.runID, At: p.e.clock.Now()},
			Err:       p.err,
		})
	}
	p.setStatus(domain.StatusErrored)
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (p *Process) setStatus(s domain.ProcessStatus) {
	if p.status == s {
		return
	}
	p.status = s
	p.e.renderer.ProcessStatus(p.ID(), s, p.decided)
	if p.e.hooks.OnProcessStatus != nil {
		p.e.hooks.OnProcessStatus(p.e.ctx, &domain.ProcessEvent{
			EventBase: domain.EventBase{Type: domain.EventProcessStatus, RunID: p.e.runID, At: p.e.clock.Now()},
			VertexID:  p.ID(),
			Status:    s,
			Decided:   p.decided,
		})
	}
}

func (p *Process) snapshot() domain.ProcessSnapshot {
	s := domain.ProcessSnapshot{
		ID:        p.ID(),
		Label:     p.String(),
		Initiator: p.v.IsInitiator(),
		Status:    p.status,
		Decided:   p.decided,
		Parent:    p.Parent(),
		Sent:      p.sent,
		Received:  p.received,
	}
	if len(p.fields) > 0 {
		s.Fields = make(map[string]any, len(p.fields))
		for k, v := range p.fields {
			s.Fields[k] = p.e.export(v)
		}
	}
	if p.err != nil {
		s.Error = p.err.Error()
	}
	return s
}
