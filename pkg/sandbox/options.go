package sandbox

import (
	"log/slog"
	"time"

	"github.com/aretw0/distsim/internal/logging"
)

// DefaultHookTimeout bounds a single script evaluation or hook call.
const DefaultHookTimeout = 5 * time.Second

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	name        string
	logger      *slog.Logger
	seed        uint64
	hookTimeout time.Duration
}

func defaultLoadOptions() loadOptions {
	return loadOptions{
		logger:      logging.NewNop(),
		seed:        uint64(time.Now().UnixNano()),
		hookTimeout: DefaultHookTimeout,
	}
}

// WithName labels the sandbox in errors and logs.
func WithName(name string) Option {
	return func(o *loadOptions) { o.name = name }
}

// WithLogger receives the output of the script's print calls.
func WithLogger(logger *slog.Logger) Option {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSeed seeds math.random inside the script.
func WithSeed(seed uint64) Option {
	return func(o *loadOptions) { o.seed = seed }
}

// WithHookTimeout bounds how long the script and each hook may run. Zero disables the bound.
func WithHookTimeout(d time.Duration) Option {
	return func(o *loadOptions) { o.hookTimeout = d }
}
