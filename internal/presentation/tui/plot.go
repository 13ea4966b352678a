package tui

import (
	"github.com/guptarohit/asciigraph"
)

// PlotSeries draws series as an ASCII line chart. Fewer than two points yield "".
func PlotSeries(series []float64, width, height int, caption string) string {
	if len(series) < 2 {
		return ""
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
