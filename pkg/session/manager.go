package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/logging"
	"github.com/aretw0/distsim/pkg/adapters/memory"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock is held if its owner dies.
const DefaultLockTTL = 30 * time.Second

// Session is one named simulation.
type Session struct {
	ID      string
	Sim     *distsim.Simulator
	Created time.Time
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager keeps several named simulations alive side by side and persists their
// topologies. Each Simulator serializes its own calls; the Manager serializes store
// writes per topology name, across replicas when a DistributedLocker is configured.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store   ports.TopologyStore
	simOpts []distsim.Option

	mu       sync.Mutex // Global lock for the maps
	sessions map[string]*Session
	locks    map[string]*lockEntry

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking of store writes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSimulatorOptions applies opts to every simulator the manager creates.
func WithSimulatorOptions(opts ...distsim.Option) Option {
	return func(m *Manager) {
		m.simOpts = append(m.simOpts, opts...)
	}
}

// NewManager creates a Session Manager persisting topologies in store.
// A nil store keeps them in memory.
func NewManager(store ports.TopologyStore, opts ...Option) *Manager {
	if store == nil {
		store = memory.NewStore()
	}
	m := &Manager{
		store:    store,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying topology store.
func (m *Manager) Store() ports.TopologyStore {
	return m.store
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, domain.ErrSessionNotFound)
	}
	return s, nil
}

// LoadOrStart returns the session id, creating it if needed. A new session starts from
// the stored topology of the same name when there is one, else from an empty graph.
func (m *Manager) LoadOrStart(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}
	if s, err := m.Get(id); err == nil {
		return s, nil
	}

	var g *domain.GraphExport
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		stored, err := m.store.Load(ctx, id)
		if errors.Is(err, domain.ErrTopologyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to check stored topology: %w", err)
		}
		g = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have won the race while we were reading the store
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	opts := append([]distsim.Option{distsim.WithName(id), distsim.WithLogger(m.logger)}, m.simOpts...)
	sim := distsim.New(opts...)
	if g != nil {
		if err := sim.ImportExport(*g); err != nil {
			sim.Close()
			return nil, err
		}
	}
	s := &Session{ID: id, Sim: sim, Created: time.Now()}
	m.sessions[id] = s
	m.logger.Debug("session started", "session_id", id, "from_store", g != nil)
	return s, nil
}

// Delete stops a session. The stored topology is kept. Deleting an unknown session is a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Sim.Close()
	}
	return nil
}

// List returns the live session ids in lexical order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SaveTopology stores the topology of session id under name (default: the session id).
func (m *Manager) SaveTopology(ctx context.Context, id, name string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if name == "" {
		name = id
	}
	g := s.Sim.Export()
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Save(ctx, name, g)
	})
}

// LoadTopology replaces the topology of session id with the stored one. Messages in
// flight on the old graph are cancelled.
func (m *Manager) LoadTopology(ctx context.Context, id, name string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if name == "" {
		name = id
	}
	var g domain.GraphExport
	err = m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		g, err = m.store.Load(ctx, name)
		return err
	})
	if err != nil {
		return err
	}
	return s.Sim.ImportExport(g)
}

// Topologies lists the stored topology names.
func (m *Manager) Topologies(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// DeleteTopology removes a stored topology.
func (m *Manager) DeleteTopology(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Delete(ctx, name)
	})
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Sim.Close()
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithLock executes a function while holding the lock for the given key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
