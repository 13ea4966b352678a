package ports_test

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
)

// MockStore is an in-memory implementation of TopologyStore for testing purposes.
type MockStore struct {
	mu   sync.Mutex
	data map[string]domain.GraphExport
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]domain.GraphExport),
	}
}

func (m *MockStore) Save(ctx context.Context, name string, g domain.GraphExport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Copy slices to simulate serialization
	m.data[name] = domain.GraphExport{
		Vertices:   slices.Clone(g.Vertices),
		Edges:      slices.Clone(g.Edges),
		Initiators: slices.Clone(g.Initiators),
	}
	return nil
}

func (m *MockStore) Load(ctx context.Context, name string) (domain.GraphExport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.data[name]
	if !ok {
		return domain.GraphExport{}, domain.ErrTopologyNotFound
	}
	return g, nil
}

func (m *MockStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func TestTopologyStore_Contract(t *testing.T) {
	ports.RunTopologyStoreContract(t, NewMockStore())
}
