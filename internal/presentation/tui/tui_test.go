package tui_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/presentation/tui"
	"github.com/aretw0/distsim/pkg/adapters/memory"
	"github.com/aretw0/distsim/pkg/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportMarkdown(t *testing.T) {
	rep := domain.Report{
		RunID:     "r1",
		Now:       12.5,
		Quiescent: true,
		Delivered: 4,
		Processes: []domain.ProcessSnapshot{
			{ID: 0, Label: "p0", Initiator: true, Status: domain.StatusTerminated, Decided: true, Parent: domain.Parent{Self: true}, Sent: 2, Received: 2},
			{ID: 1, Label: "p1", Status: domain.StatusErrored, Error: "a|b", Fields: map[string]any{"z": 1, "a": true}},
		},
	}
	md := tui.ReportMarkdown("Echo", rep)

	assert.Contains(t, md, "# Echo")
	assert.Contains(t, md, "**quiescent** at t = 12.5, 4 delivered, 0 in flight")
	assert.Contains(t, md, "| p0 | terminated (decided) * | self | 2 | 2 |  |")
	assert.Contains(t, md, "errored: a\\|b")
	assert.Contains(t, md, "a=true z=1")

	assert.Contains(t, tui.ReportMarkdown("Empty", domain.Report{}), "_No processes._")
}

func TestRendererFallsBackToText(t *testing.T) {
	out, err := tui.NewRenderer()("# Title")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}

func TestPlotSeries(t *testing.T) {
	assert.Empty(t, tui.PlotSeries([]float64{1}, 20, 3, "x"))
	chart := tui.PlotSeries([]float64{0, 2, 4, 1}, 20, 3, "in flight")
	assert.Contains(t, chart, "in flight")
	assert.Greater(t, strings.Count(chart, "\n"), 2)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "__| (_)")
}

func watchEcho(t *testing.T) (tui.WatchModel, *distsim.Simulator) {
	board := memory.NewBoard(0)
	sim := distsim.New(distsim.WithRenderer(board), distsim.WithSeed(3))
	t.Cleanup(sim.Close)
	for i := range 3 {
		sim.AddVertex(float64(i*100), 0)
	}
	_, err := sim.AddChannel(0, 1, false)
	require.NoError(t, err)
	_, err = sim.AddChannel(1, 2, false)
	require.NoError(t, err)
	require.NoError(t, sim.SetInitiator(0, true))
	require.NoError(t, sim.RunSample(context.Background(), "echo"))
	return tui.NewWatchModel(sim, board, "echo", domain.Unit, time.Millisecond), sim
}

func update(m tui.WatchModel, msg tea.Msg) (tui.WatchModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(tui.WatchModel), cmd
}

func TestWatchRunsToQuiescence(t *testing.T) {
	m, _ := watchEcho(t)
	assert.NotNil(t, m.Init())

	for range 100 {
		var cmd tea.Cmd
		m, cmd = update(m, tui.TickMsg(time.Now()))
		require.NotNil(t, cmd)
	}
	rep := m.Report()
	assert.InDelta(t, 100.0, rep.Now, 1e-9)
	assert.True(t, rep.Quiescent)

	view := m.View()
	assert.Contains(t, view, "p0*")
	assert.Contains(t, view, "terminated")
	assert.Contains(t, view, "→ self")
	assert.Contains(t, view, "messages in flight")
}

func TestWatchKeys(t *testing.T) {
	m, sim := watchEcho(t)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, m.Running())
	assert.Contains(t, m.View(), "paused")

	m, _ = update(m, tui.TickMsg(time.Now()))
	assert.Zero(t, sim.Now())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Equal(t, domain.Unit, sim.Now())

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Equal(t, 3*domain.Unit, sim.Now())

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
