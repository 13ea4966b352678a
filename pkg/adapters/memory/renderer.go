package memory

import (
	"sync"

	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/ports"
)

var _ ports.Renderer = (*Board)(nil)

// Mark is what a Board shows for one process.
type Mark struct {
	Progress float64
	Blocking bool
	Status   domain.ProcessStatus
	Decided  bool
	Parent   domain.Parent
}

// Board implements ports.Renderer by keeping the latest visual state of every process,
// for frontends that redraw from a snapshot rather than animate each notification.
// Safe for concurrent use.
type Board struct {
	mu       sync.RWMutex
	marks    map[domain.VertexID]Mark
	transits []domain.Transit
	limit    int
}

// NewBoard creates a board remembering the last limit transits (0 keeps none).
func NewBoard(limit int) *Board {
	return &Board{
		marks: make(map[domain.VertexID]Mark),
		limit: limit,
	}
}

func (b *Board) BeginTransit(t domain.Transit) {
	if b.limit == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transits = append(b.transits, t)
	if over := len(b.transits) - b.limit; over > 0 {
		b.transits = append(b.transits[:0], b.transits[over:]...)
	}
}

func (b *Board) ProcessProgress(id domain.VertexID, fraction float64, blocking bool) {
	b.update(id, func(m *Mark) {
		m.Progress = fraction
		m.Blocking = blocking
	})
}

func (b *Board) ProcessStatus(id domain.VertexID, status domain.ProcessStatus, decided bool) {
	b.update(id, func(m *Mark) {
		m.Status = status
		m.Decided = decided
	})
}

func (b *Board) ParentChanged(id domain.VertexID, parent domain.Parent) {
	b.update(id, func(m *Mark) { m.Parent = parent })
}

func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.marks)
	b.transits = nil
}

func (b *Board) update(id domain.VertexID, fn func(*Mark)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.marks[id]
	fn(&m)
	b.marks[id] = m
}

// Mark returns what the board shows for a process.
func (b *Board) Mark(id domain.VertexID) Mark {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.marks[id]
}

// Transits returns the most recent transits, oldest first.
func (b *Board) Transits() []domain.Transit {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Transit(nil), b.transits...)
}
