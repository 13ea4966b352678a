package ports

import (
	"context"

	"github.com/aretw0/distsim/pkg/domain"
)

// TopologyStore persists named topologies in their export form.
type TopologyStore interface {
	// Save stores (or replaces) the topology under name.
	Save(ctx context.Context, name string, g domain.GraphExport) error

	// Load retrieves a topology by name.
	// Returns domain.ErrTopologyNotFound if the name is unknown.
	Load(ctx context.Context, name string) (domain.GraphExport, error)

	// Delete removes a topology. Deleting an unknown name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the stored names.
	List(ctx context.Context) ([]string, error)
}
