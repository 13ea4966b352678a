package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/distsim/pkg/domain"
)

// Store implements ports.TopologyStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.GraphExport
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.GraphExport),
	}
}

// Save persists the topology in memory.
func (s *Store) Save(ctx context.Context, name string, g domain.GraphExport) error {
	// Copy so later edits by the caller do not leak into the store
	copied := clone(g)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = copied
	return nil
}

// Load retrieves the topology from memory.
func (s *Store) Load(ctx context.Context, name string) (domain.GraphExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.data[name]
	if !ok {
		return domain.GraphExport{}, fmt.Errorf("%q: %w", name, domain.ErrTopologyNotFound)
	}
	return clone(g), nil
}

// Delete removes the topology.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the stored names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func clone(g domain.GraphExport) domain.GraphExport {
	return domain.GraphExport{
		Vertices:   slices.Clone(g.Vertices),
		Edges:      slices.Clone(g.Edges),
		Initiators: slices.Clone(g.Initiators),
	}
}
