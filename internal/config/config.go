// Package config loads the YAML configuration shared by the distsim commands.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/adapters/file"
	"github.com/aretw0/distsim/pkg/adapters/memory"
	"github.com/aretw0/distsim/pkg/adapters/redis"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when no --config flag is given.
const DefaultPath = "distsim.yaml"

const (
	DefaultHorizon     = 1000.0
	DefaultHookTimeout = 5 * time.Second
	DefaultStoreDir    = ".distsim"
	DefaultServerAddr  = ":8080"
	DefaultMCPPort     = 8081
	DefaultLogLevel    = "info"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
}

// SimulationConfig holds the timing model. Durations are in simulated units.
type SimulationConfig struct {
	Seed          uint64        `yaml:"seed"` // 0 draws a fresh seed per simulator
	Tick          float64       `yaml:"tick"`
	Transit       RangeConfig   `yaml:"transit"`
	ProcessTime   RangeConfig   `yaml:"process_time"`
	ProgressSteps int           `yaml:"progress_steps"`
	Horizon       float64       `yaml:"horizon"`
	HookTimeout   time.Duration `yaml:"hook_timeout"`
}

// RangeConfig is a fixed duration plus the bounds used when the algorithm asks for random ones.
type RangeConfig struct {
	Default float64 `yaml:"default"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	MCPPort int    `yaml:"mcp_port"`
}

func units(d time.Duration) float64 { return float64(d) / float64(domain.Unit) }

// Duration converts simulated units to a duration.
func Duration(u float64) time.Duration { return time.Duration(u * float64(domain.Unit)) }

func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Tick: units(domain.DefaultTick),
			Transit: RangeConfig{
				Default: units(domain.DefaultTransit),
				Min:     units(domain.MinRandomTransit),
				Max:     units(domain.MaxRandomTransit),
			},
			ProcessTime: RangeConfig{
				Default: units(domain.DefaultProcessTime),
				Min:     units(domain.MinProcessTime),
				Max:     units(domain.MaxProcessTime),
			},
			ProgressSteps: domain.DefaultProgress,
			Horizon:       DefaultHorizon,
			HookTimeout:   DefaultHookTimeout,
		},
		Log: LogConfig{Level: DefaultLogLevel, Format: "text"},
		Store: StoreConfig{
			Backend: BackendMemory,
			Dir:     DefaultStoreDir,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: redis.DefaultPrefix,
			},
		},
		Server: ServerConfig{
			Addr:    DefaultServerAddr,
			MCPPort: DefaultMCPPort,
		},
	}
}

// Load reads path over the defaults, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	s := c.Simulation
	var errs []error
	if s.Tick <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick must be positive"))
	}
	for name, r := range map[string]RangeConfig{"transit": s.Transit, "process_time": s.ProcessTime} {
		if r.Default <= 0 || r.Min <= 0 || r.Max < r.Min {
			errs = append(errs, fmt.Errorf("simulation.%s needs default > 0 and 0 < min <= max", name))
		}
	}
	if s.ProgressSteps <= 0 {
		errs = append(errs, fmt.Errorf("simulation.progress_steps must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	switch strings.ToLower(c.Store.Backend) {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, file, redis", c.Store.Backend))
	}
	return errors.Join(errs...)
}

// SimulatorOptions translates the simulation section into simulator options.
func (c *Config) SimulatorOptions() []distsim.Option {
	s := c.Simulation
	opts := []distsim.Option{
		distsim.WithTick(Duration(s.Tick)),
		distsim.WithTransit(Duration(s.Transit.Default), Duration(s.Transit.Min), Duration(s.Transit.Max)),
		distsim.WithProcessTime(Duration(s.ProcessTime.Default), Duration(s.ProcessTime.Min), Duration(s.ProcessTime.Max), s.ProgressSteps),
	}
	if s.HookTimeout > 0 {
		opts = append(opts, distsim.WithHookTimeout(s.HookTimeout))
	}
	if s.Seed != 0 {
		opts = append(opts, distsim.WithSeed(s.Seed))
	}
	return opts
}

// Backend is an opened topology store, with the locker that guards it when shared.
type Backend struct {
	Store  ports.TopologyStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend connection, if any.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects the configured topology store.
func (c StoreConfig) Open() (*Backend, error) {
	switch strings.ToLower(c.Backend) {
	case BackendMemory, "":
		return &Backend{Store: memory.NewStore()}, nil
	case BackendFile:
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store dir: %w", err)
		}
		return &Backend{Store: file.New(c.Dir)}, nil
	case BackendRedis:
		store := redis.New(c.Redis.Addr, c.Redis.Password, c.Redis.DB,
			redis.WithPrefix(c.Redis.Prefix),
			redis.WithTTL(c.Redis.TTL),
		)
		prefix := c.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), prefix),
			close:  store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Backend)
	}
}
