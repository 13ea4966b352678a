package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/distsim/internal/delivery"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
	"go.opentelemetry.io/otel/trace"
)

// ProcessTiming drives the cosmetic processing cue.
type ProcessTiming struct {
	Default time.Duration
	Min     time.Duration
	Max     time.Duration
	Steps   int
}

// DefaultProcessTiming returns 2 units (random in [1,5]) split into 10 progress steps.
func DefaultProcessTiming() ProcessTiming {
	return ProcessTiming{
		Default: domain.DefaultProcessTime,
		Min:     domain.MinProcessTime,
		Max:     domain.MaxProcessTime,
		Steps:   domain.DefaultProgress,
	}
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRenderer receives visual notifications.
func WithRenderer(r ports.Renderer) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithSeed makes transit draws, jitter and processing times reproducible.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithTiming overrides the channel transit durations.
func WithTiming(t delivery.Timing) EngineOption {
	return func(e *Engine) {
		e.timing = t
	}
}

// WithProcessTiming overrides the processing cue durations.
func WithProcessTiming(t ProcessTiming) EngineOption {
	return func(e *Engine) {
		if t.Steps < 1 {
			t.Steps = 1
		}
		e.processTiming = t
	}
}

// WithTick sets the simulated duration of one Tick.
func WithTick(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithTracerProvider enables a span around every hook invocation.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		if tp != nil {
			e.tracerProvider = tp
		}
	}
}
