package samples

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
	"github.com/aretw0/distsim/pkg/sandbox"
)

//go:embed lua/*.lua
var scripts embed.FS

// GraphType is the family of graphs an algorithm is written for.
type GraphType string

const (
	Generic  GraphType = "generic"
	Directed GraphType = "directed"
	Ring     GraphType = "ring"
	Acyclic  GraphType = "acyclic"
)

// Sample describes one bundled algorithm.
type Sample struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	GraphType GraphType `json:"graph_type"`
	file      string
}

var listing = []Sample{
	{Name: "template", Title: "Template", GraphType: Generic, file: "template.lua"},
	{Name: "chandy-lamport", Title: "Chandy-Lamport", GraphType: Generic, file: "chandy_lamport.lua"},
	{Name: "chandy-misra", Title: "Chandy-Misra", GraphType: Generic, file: "chandy_misra.lua"},
	{Name: "chang-roberts", Title: "Chang-Roberts", GraphType: Directed, file: "chang_roberts.lua"},
	{Name: "cidon", Title: "Cidon's", GraphType: Generic, file: "cidon.lua"},
	{Name: "echo", Title: "Echo", GraphType: Generic, file: "echo.lua"},
	{Name: "franklin", Title: "Franklin's", GraphType: Ring, file: "franklin.lua"},
	{Name: "tree", Title: "Tree", GraphType: Acyclic, file: "tree.lua"},
}

// List returns every bundled sample in display order.
func List() []Sample {
	return slices.Clone(listing)
}

// Lookup finds a sample by name or title, ignoring case.
func Lookup(name string) (Sample, error) {
	for _, s := range listing {
		if strings.EqualFold(s.Name, name) || strings.EqualFold(s.Title, name) {
			return s, nil
		}
	}
	return Sample{}, fmt.Errorf("%q: %w", name, domain.ErrSampleNotFound)
}

// Source returns the script text of the sample.
func (s Sample) Source() ([]byte, error) {
	return scripts.ReadFile("lua/" + s.file)
}

// Load evaluates the named sample into a fresh sandbox.
func Load(name string, opts ...sandbox.Option) (*sandbox.Sandbox, error) {
	s, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	src, err := s.Source()
	if err != nil {
		return nil, err
	}
	return sandbox.Load(string(src), append([]sandbox.Option{sandbox.WithName(s.Name)}, opts...)...)
}

var _ ports.AlgorithmLoader = Loader{}

// Loader serves the bundled samples through ports.AlgorithmLoader.
type Loader struct{}

// GetAlgorithm returns the script of the named sample.
func (Loader) GetAlgorithm(name string) ([]byte, error) {
	s, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.Source()
}

// ListAlgorithms returns the sample names in display order.
func (Loader) ListAlgorithms() ([]string, error) {
	names := make([]string, 0, len(listing))
	for _, s := range listing {
		names = append(names, s.Name)
	}
	return names, nil
}
