package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTopologyStoreContract runs a suite of tests to verify that a TopologyStore implementation
// adheres to the defined interface contract.
func RunTopologyStoreContract(t *testing.T, store TopologyStore) {
	ctx := context.Background()
	name := "contract-test-" + time.Now().Format("20060102150405")

	sample := domain.GraphExport{
		Vertices: []domain.VertexExport{
			{X: 10, Y: 20, ID: 0},
			{X: 30.5, Y: 40, ID: 1},
			{X: 50, Y: 60, ID: 2},
		},
		Edges: []domain.EdgeExport{
			{Start: 0, End: 1, Undirected: true},
			{Start: 2, End: 1},
		},
		Initiators: []domain.VertexID{0},
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, name, sample)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sample, loaded)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		smaller := domain.GraphExport{
			Vertices:   []domain.VertexExport{{X: 1, Y: 1, ID: 0}},
			Edges:      []domain.EdgeExport{},
			Initiators: []domain.VertexID{},
		}
		require.NoError(t, store.Save(ctx, name, smaller))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Len(t, loaded.Vertices, 1)
		assert.Empty(t, loaded.Edges)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrTopologyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, sample))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrTopologyNotFound, "Load after Delete should return ErrTopologyNotFound")

		assert.NoError(t, store.Delete(ctx, name), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		_ = store.Save(ctx, id1, sample)
		_ = store.Save(ctx, id2, sample)

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}
