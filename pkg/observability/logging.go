package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/distsim/pkg/domain"
)

// LogHooks writes every lifecycle event to logger. Message traffic is logged at debug
// level, status changes at info and hook failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	message := func(msg string) func(context.Context, *domain.MessageEvent) {
		return func(ctx context.Context, e *domain.MessageEvent) {
			logger.DebugContext(ctx, msg,
				"run_id", e.RunID,
				"at", e.At,
				"from", e.From.Label(),
				"to", e.To.Label(),
				"channel", e.Channel,
			)
		}
	}
	return domain.LifecycleHooks{
		OnMessageSent:      message("message_sent"),
		OnMessageDelivered: message("message_delivered"),
		OnMessageDropped:   message("message_dropped"),
		OnProcessStatus: func(ctx context.Context, e *domain.ProcessEvent) {
			logger.InfoContext(ctx, "process_status",
				"run_id", e.RunID,
				"at", e.At,
				"process", e.VertexID.Label(),
				"status", e.Status,
				"decided", e.Decided,
			)
		},
		OnHookError: func(ctx context.Context, e *domain.HookErrorEvent) {
			logger.WarnContext(ctx, "hook_error",
				"run_id", e.RunID,
				"at", e.At,
				"process", e.Err.VertexID.Label(),
				"hook", e.Err.Hook,
				"error", e.Err.Cause,
			)
		},
	}
}
