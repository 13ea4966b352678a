package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/distsim/pkg/domain"
)

// Loader implements ports.AlgorithmLoader over a directory of .lua scripts.
// The algorithm name is the file name without extension.
type Loader struct {
	Dir string
}

// NewLoader creates a loader reading scripts from dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// GetAlgorithm reads <dir>/<name>.lua.
func (l *Loader) GetAlgorithm(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrSampleNotFound)
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, name+".lua"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrSampleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read algorithm: %w", err)
	}
	return data, nil
}

// ListAlgorithms returns the script names in the directory.
func (l *Loader) ListAlgorithms() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.Dir, "*.lua"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".lua"))
	}
	sort.Strings(names)
	return names, nil
}
