package tests

import (
	"errors"
	"testing"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
)

// AlgorithmLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.AlgorithmLoader.
func AlgorithmLoaderContractTest(t *testing.T, loader ports.AlgorithmLoader, setupData map[string][]byte) {
	t.Helper()

	// 1. Test GetAlgorithm (Success)
	t.Run("GetAlgorithm_Success", func(t *testing.T) {
		for name, expected := range setupData {
			content, err := loader.GetAlgorithm(name)
			if err != nil {
				t.Fatalf("unexpected error getting algorithm %s: %v", name, err)
			}
			if string(content) != string(expected) {
				t.Errorf("content mismatch for %s. got %q, want %q", name, content, expected)
			}
		}
	})

	// 2. Test GetAlgorithm (NotFound)
	t.Run("GetAlgorithm_NotFound", func(t *testing.T) {
		_, err := loader.GetAlgorithm("non-existent-algorithm")
		if !errors.Is(err, domain.ErrSampleNotFound) {
			t.Errorf("expected ErrSampleNotFound, got %v", err)
		}
	})

	// 3. Test ListAlgorithms
	t.Run("ListAlgorithms", func(t *testing.T) {
		names, err := loader.ListAlgorithms()
		if err != nil {
			t.Fatalf("unexpected error listing algorithms: %v", err)
		}

		if len(names) != len(setupData) {
			t.Errorf("expected %d algorithms, got %d", len(setupData), len(names))
		}

		lookup := make(map[string]bool)
		for _, name := range names {
			lookup[name] = true
		}

		for name := range setupData {
			if !lookup[name] {
				t.Errorf("algorithm %s missing from list", name)
			}
		}
	})
}
