package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/pkg/adapters/memory"
	"github.com/aretw0/distsim/pkg/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	historyCapacity = 300
	barWidth        = 10
	minStep         = domain.Unit / 100
)

var (
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(6)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	pausedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	blockingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	nonblockingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	statusStyles = map[domain.ProcessStatus]lipgloss.Style{
		domain.StatusCreated:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		domain.StatusInitialized: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		domain.StatusRunning:     lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		domain.StatusTerminated:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		domain.StatusErrored:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
	decidedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
)

// TickMsg asks the watch model to advance one frame.
type TickMsg time.Time

// WatchModel is a bubbletea model that drives a simulator on the wall clock and shows
// every process with its status, processing fill and parent, plus a plot of messages in
// flight.
type WatchModel struct {
	sim      *distsim.Simulator
	board    *memory.Board
	title    string
	step     time.Duration
	interval time.Duration
	running  bool
	history  []float64
	report   domain.Report
}

// NewWatchModel watches sim, which must render to board. Each frame advances simulated
// time by step and frames are interval apart.
func NewWatchModel(sim *distsim.Simulator, board *memory.Board, title string, step, interval time.Duration) WatchModel {
	return WatchModel{
		sim:      sim,
		board:    board,
		title:    title,
		step:     max(step, minStep),
		interval: interval,
		running:  true,
		history:  make([]float64, 0, historyCapacity),
		report:   sim.Report(),
	}
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m WatchModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and steps the simulation.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.advance()
			}
		case "+", "=":
			m.step *= 2
		case "-", "_":
			m.step = max(m.step/2, minStep)
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *WatchModel) advance() {
	m.sim.Advance(context.Background(), m.step)
	m.report = m.sim.Report()
	if len(m.history) == historyCapacity {
		m.history = append(m.history[:0], m.history[1:]...)
	}
	m.history = append(m.history, float64(m.report.InFlight))
}

// Report returns the report of the last frame.
func (m WatchModel) Report() domain.Report {
	return m.report
}

// Running reports whether frames advance the simulation.
func (m WatchModel) Running() bool {
	return m.running
}

func (m WatchModel) View() string {
	var sb strings.Builder

	state := "running"
	switch {
	case !m.running:
		state = pausedStyle.Render("paused")
	case m.report.Quiescent:
		state = "quiescent"
	}
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%s  t=%.1f  delivered=%d  in flight=%d  x%.2f/frame  %s",
		m.title, m.report.Now, m.report.Delivered, m.report.InFlight, float64(m.step)/float64(domain.Unit), state)))
	sb.WriteString("\n")

	for _, p := range m.report.Processes {
		sb.WriteString(m.processLine(p))
		sb.WriteString("\n")
	}

	if chart := PlotSeries(m.history, 40, 5, "messages in flight"); chart != "" {
		sb.WriteString(graphStyle.Render(chart))
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render("space pause • n step • +/- speed • q quit"))
	return sb.String()
}

func (m WatchModel) processLine(p domain.ProcessSnapshot) string {
	mark := m.board.Mark(p.ID)

	label := p.Label
	if p.Initiator {
		label += "*"
	}
	style, ok := statusStyles[p.Status]
	if !ok {
		style = valueStyle
	}
	status := style.Render(fmt.Sprintf("%-11s", p.Status))
	if p.Decided {
		status += " " + decidedStyle.Render("decided")
	}

	filled := min(max(int(mark.Progress*barWidth+0.5), 0), barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	if mark.Progress > 0 {
		if mark.Blocking {
			bar = blockingStyle.Render(bar)
		} else {
			bar = nonblockingStyle.Render(bar)
		}
	}

	parent := ""
	if !p.Parent.IsZero() {
		parent = " → " + p.Parent.String()
	}
	return fmt.Sprintf("%s %s %s%s", labelStyle.Render(label), bar, status, valueStyle.Render(parent))
}
