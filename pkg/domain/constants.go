package domain

import "time"

// Unit is one simulated time unit. All simulated durations are expressed in it.
const Unit = time.Second

// Timing defaults of the channel delivery model and the simulated processing cue.
const (
	DefaultTransit     = 4 * Unit
	MinRandomTransit   = 1 * Unit
	MaxRandomTransit   = 7 * Unit
	DefaultJitter      = 0.25
	DefaultProcessTime = 2 * Unit
	MinProcessTime     = 1 * Unit
	MaxProcessTime     = 5 * Unit
	DefaultProgress    = 10
	DefaultTick        = Unit / 10
)

// Hook names used in errors, logs and traces.
const (
	HookInitialize = "initialize"
	HookInitiate   = "initiate"
	HookReceive    = "receive"
)
