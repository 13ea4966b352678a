package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/distsim/internal/adapters/file"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/samples"
	"github.com/aretw0/distsim/pkg/topology"
	"gopkg.in/yaml.v3"
)

// ReadTopology reads a topology document. Files ending in .yaml or .yml are YAML,
// anything else is JSON; both use the {v, e, i} exchange form.
func ReadTopology(path string) (domain.GraphExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.GraphExport{}, fmt.Errorf("failed to read topology: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return domain.GraphExport{}, &domain.ImportParseError{Reason: "malformed YAML", Cause: err}
		}
		return topology.DecodeExport(raw)
	default:
		var g domain.GraphExport
		if err := json.Unmarshal(data, &g); err != nil {
			return domain.GraphExport{}, &domain.ImportParseError{Reason: "malformed JSON", Cause: err}
		}
		return g, nil
	}
}

// Algorithm is a resolved algorithm argument.
type Algorithm struct {
	Name   string
	Source string
	// Sample is set when the algorithm is one of the bundled samples.
	Sample *samples.Sample
}

// ResolveAlgorithm turns a command line argument into a script. An existing file is read
// as Lua; otherwise the name is looked up in dir (a directory of .lua files) when given,
// then in the bundled samples.
func ResolveAlgorithm(arg, dir string) (Algorithm, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		src, err := os.ReadFile(arg)
		if err != nil {
			return Algorithm{}, err
		}
		name := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		return Algorithm{Name: name, Source: string(src)}, nil
	}

	if dir != "" {
		src, err := file.NewLoader(dir).GetAlgorithm(arg)
		if err == nil {
			return Algorithm{Name: arg, Source: string(src)}, nil
		}
		if !errors.Is(err, domain.ErrSampleNotFound) {
			return Algorithm{}, err
		}
	}

	s, err := samples.Lookup(arg)
	if err != nil {
		return Algorithm{}, fmt.Errorf("algorithm %q: %w", arg, err)
	}
	src, err := s.Source()
	if err != nil {
		return Algorithm{}, err
	}
	return Algorithm{Name: s.Name, Source: string(src), Sample: &s}, nil
}
