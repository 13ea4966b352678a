package sandbox

import (
	"fmt"
	"sync"

	"github.com/aretw0/distsim/pkg/domain"
)

// HookFunc is an initializer or initiator.
type HookFunc func(p Process) error

// ReceiveFunc handles a message that arrived on the named channel.
type ReceiveFunc func(p Process, msg any, channel string) error

// Sandbox is the per-run set of hooks and simulation toggles.
type Sandbox struct {
	Name string

	Initializer HookFunc
	Initiator   HookFunc
	Receiver    ReceiveFunc

	// TraversalTimesRandom draws each channel's transit duration once per run.
	TraversalTimesRandom bool
	// TraversalJitter is the per-message jitter fraction in [0,1]. Zero disables jitter.
	TraversalJitter float64
	// ProcessTimesRandom draws the duration of each processing cue.
	ProcessTimesRandom bool

	export    func(any) any
	closer    func()
	closeOnce sync.Once
}

// ExportValue converts a payload or field value into plain Go data (maps, slices, strings,
// numbers, bools) suitable for JSON snapshots.
func (s *Sandbox) ExportValue(v any) any {
	if s.export == nil {
		return v
	}
	return s.export(v)
}

// Close releases interpreter resources. It is safe to call more than once.
func (s *Sandbox) Close() {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closer()
		}
	})
}

// Registrar collects registrations while a Sandbox is being defined.
// Registering a hook or toggle again overwrites the previous registration.
type Registrar struct {
	sb  *Sandbox
	err error
}

func (r *Registrar) OnInitializationDo(fn HookFunc) { r.sb.Initializer = fn }

func (r *Registrar) OnInitiationDo(fn HookFunc) { r.sb.Initiator = fn }

func (r *Registrar) OnReceivingMessageDo(fn ReceiveFunc) { r.sb.Receiver = fn }

func (r *Registrar) RandomizeTraversalTimes() { r.sb.TraversalTimesRandom = true }

func (r *Registrar) RandomizeProcessTimes() { r.sb.ProcessTimesRandom = true }

// AddJitterToTraversalTimes enables per-message jitter. The percent defaults to 0.25 and
// must lie in [0,1].
func (r *Registrar) AddJitterToTraversalTimes(percent ...float64) {
	j := domain.DefaultJitter
	if len(percent) > 0 {
		j = percent[0]
	}
	if j < 0 || j > 1 {
		r.err = fmt.Errorf("jitter %v outside [0,1]", j)
		return
	}
	r.sb.TraversalJitter = j
}

// Err returns the first invalid registration, if any.
func (r *Registrar) Err() error { return r.err }

// Define builds a Sandbox from Go code. A panic or an invalid registration inside fn is
// reported as *domain.SandboxLoadError.
func Define(name string, fn func(r *Registrar)) (sb *Sandbox, err error) {
	sb = &Sandbox{Name: name}
	reg := &Registrar{sb: sb}
	defer func() {
		if rec := recover(); rec != nil {
			sb, err = nil, &domain.SandboxLoadError{Name: name, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()
	fn(reg)
	if reg.err != nil {
		return nil, &domain.SandboxLoadError{Name: name, Cause: reg.err}
	}
	return sb, nil
}
