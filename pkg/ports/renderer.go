package ports

import "github.com/aretw0/distsim/pkg/domain"

// Renderer receives one-way visual notifications from the engine.
// The engine never reads anything back; implementations must not block.
type Renderer interface {
	// BeginTransit starts drawing a message marker moving along a channel for the given
	// simulated duration.
	BeginTransit(t domain.Transit)

	// ProcessProgress updates the fill of a process during simulated local computation.
	// Fraction runs from 0 to 1; 0 clears the fill.
	ProcessProgress(id domain.VertexID, fraction float64, blocking bool)

	// ProcessStatus flags a status change, e.g. terminated or decided.
	ProcessStatus(id domain.VertexID, status domain.ProcessStatus, decided bool)

	// ParentChanged draws the indicator from a process to its declared parent.
	ParentChanged(id domain.VertexID, parent domain.Parent)

	// Reset restores the baseline rendering.
	Reset()
}

// NopRenderer discards every notification.
type NopRenderer struct{}

func (NopRenderer) BeginTransit(domain.Transit)                               {}
func (NopRenderer) ProcessProgress(domain.VertexID, float64, bool)            {}
func (NopRenderer) ProcessStatus(domain.VertexID, domain.ProcessStatus, bool) {}
func (NopRenderer) ParentChanged(domain.VertexID, domain.Parent)              {}
func (NopRenderer) Reset()                                                    {}
