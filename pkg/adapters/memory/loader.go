package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/distsim/pkg/domain"
)

// Loader implements ports.AlgorithmLoader using an in-memory map of scripts.
type Loader struct {
	scripts map[string][]byte
}

// NewLoader creates a Loader from script sources keyed by name.
func NewLoader(data map[string]string) *Loader {
	scripts := make(map[string][]byte, len(data))
	for k, v := range data {
		scripts[k] = []byte(v)
	}
	return &Loader{
		scripts: scripts,
	}
}

// GetAlgorithm returns the source of the named script.
func (l *Loader) GetAlgorithm(name string) ([]byte, error) {
	content, ok := l.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrSampleNotFound)
	}
	return content, nil
}

// ListAlgorithms returns all script names.
func (l *Loader) ListAlgorithms() ([]string, error) {
	keys := make([]string, 0, len(l.scripts))
	for k := range l.scripts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
