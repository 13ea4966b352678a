package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventMessageSent      EventType = "message_sent"
	EventMessageDelivered EventType = "message_delivered"
	EventMessageDropped   EventType = "message_dropped"
	EventProcessStatus    EventType = "process_status"
	EventHookError        EventType = "hook_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Type  EventType     `json:"type"`
	RunID string        `json:"run_id"`
	At    time.Duration `json:"at"` // simulated time since the run started
}

// MessageEvent describes a message leaving or reaching a process.
type MessageEvent struct {
	EventBase
	From    VertexID      `json:"from"`
	To      VertexID      `json:"to"`
	Channel string        `json:"channel"`
	Payload any           `json:"payload,omitempty"`
	Delay   time.Duration `json:"delay"`
}

// ProcessEvent describes a status change of a process.
type ProcessEvent struct {
	EventBase
	VertexID VertexID      `json:"vertex_id"`
	Status   ProcessStatus `json:"status"`
	Decided  bool          `json:"decided,omitempty"`
}

// HookErrorEvent describes a failing hook.
type HookErrorEvent struct {
	EventBase
	Err *HookError `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnMessageSent      func(context.Context, *MessageEvent)
	OnMessageDelivered func(context.Context, *MessageEvent)
	OnMessageDropped   func(context.Context, *MessageEvent)
	OnProcessStatus    func(context.Context, *ProcessEvent)
	OnHookError        func(context.Context, *HookErrorEvent)
}

// ComposeHooks returns hooks that call every given set in order.
func ComposeHooks(sets ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnMessageSent: func(ctx context.Context, e *MessageEvent) {
			for _, s := range sets {
				if s.OnMessageSent != nil {
					s.OnMessageSent(ctx, e)
				}
			}
		},
		OnMessageDelivered: func(ctx context.Context, e *MessageEvent) {
			for _, s := range sets {
				if s.OnMessageDelivered != nil {
					s.OnMessageDelivered(ctx, e)
				}
			}
		},
		OnMessageDropped: func(ctx context.Context, e *MessageEvent) {
			for _, s := range sets {
				if s.OnMessageDropped != nil {
					s.OnMessageDropped(ctx, e)
				}
			}
		},
		OnProcessStatus: func(ctx context.Context, e *ProcessEvent) {
			for _, s := range sets {
				if s.OnProcessStatus != nil {
					s.OnProcessStatus(ctx, e)
				}
			}
		},
		OnHookError: func(ctx context.Context, e *HookErrorEvent) {
			for _, s := range sets {
				if s.OnHookError != nil {
					s.OnHookError(ctx, e)
				}
			}
		},
	}
}
