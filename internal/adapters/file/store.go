package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/distsim/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Store implements ports.TopologyStore using the local filesystem.
// Topologies are written as JSON files in a configured directory; hand-written
// .yaml/.yml files in the same directory are read as well.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".distsim/topologies".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".distsim", "topologies")
	}
	return &Store{BasePath: basePath}
}

var extensions = []string{".json", ".yaml", ".yml"}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("topology name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid topology name %q", name)
	}
	return nil
}

// Save persists the topology to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, name string, g domain.GraphExport) error {
	if err := checkName(name); err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure topology directory: %w", err)
	}

	destPath := filepath.Join(s.BasePath, name+".json")

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal topology: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+name+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing topology file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to topology: %w", err)
	}

	// A JSON save supersedes any YAML file of the same name
	for _, ext := range extensions[1:] {
		_ = os.Remove(filepath.Join(s.BasePath, name+ext))
	}
	return nil
}

// Load retrieves the topology from its JSON or YAML file.
func (s *Store) Load(ctx context.Context, name string) (domain.GraphExport, error) {
	var g domain.GraphExport
	if err := checkName(name); err != nil {
		return g, err
	}

	for _, ext := range extensions {
		data, err := os.ReadFile(filepath.Join(s.BasePath, name+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return g, fmt.Errorf("failed to read topology file: %w", err)
		}
		if ext == ".json" {
			err = json.Unmarshal(data, &g)
		} else {
			err = yaml.Unmarshal(data, &g)
		}
		if err != nil {
			return g, &domain.ImportParseError{Reason: name + ext, Cause: err}
		}
		return g, nil
	}
	return g, fmt.Errorf("%q: %w", name, domain.ErrTopologyNotFound)
}

// Delete removes every file stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	for _, ext := range extensions {
		err := os.Remove(filepath.Join(s.BasePath, name+ext))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete topology file: %w", err)
		}
	}
	return nil
}

// List returns all stored topology names.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list topologies: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !slices.Contains(extensions, ext) || strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names, nil
}
