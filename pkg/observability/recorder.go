package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/distsim/pkg/domain"
)

// DefaultRecorderSize is the number of events a Recorder keeps.
const DefaultRecorderSize = 256

// Event is one recorded lifecycle event, flattened for display and JSON.
type Event struct {
	Type    domain.EventType     `json:"type"`
	RunID   string               `json:"run_id"`
	At      time.Duration        `json:"at"`
	From    *domain.VertexID     `json:"from,omitempty"`
	To      *domain.VertexID     `json:"to,omitempty"`
	Process *domain.VertexID     `json:"process,omitempty"`
	Channel string               `json:"channel,omitempty"`
	Status  domain.ProcessStatus `json:"status,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Recorder keeps the most recent events in a ring buffer. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	total  int
}

// NewRecorder creates a recorder keeping up to size events.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{events: make([]Event, size)}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = e
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
	r.total++
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.events[:r.next]...)
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}

// Total returns how many events were recorded, including evicted ones.
func (r *Recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Clear drops every recorded event.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.events)
	r.next, r.full, r.total = 0, false, 0
}

// Hooks returns lifecycle hooks feeding the recorder.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	message := func(_ context.Context, e *domain.MessageEvent) {
		from, to := e.From, e.To
		r.add(Event{Type: e.Type, RunID: e.RunID, At: e.At, From: &from, To: &to, Channel: e.Channel})
	}
	return domain.LifecycleHooks{
		OnMessageSent:      message,
		OnMessageDelivered: message,
		OnMessageDropped:   message,
		OnProcessStatus: func(_ context.Context, e *domain.ProcessEvent) {
			id := e.VertexID
			r.add(Event{Type: e.Type, RunID: e.RunID, At: e.At, Process: &id, Status: e.Status})
		},
		OnHookError: func(_ context.Context, e *domain.HookErrorEvent) {
			id := e.Err.VertexID
			r.add(Event{Type: e.Type, RunID: e.RunID, At: e.At, Process: &id, Error: e.Err.Error()})
		},
	}
}
