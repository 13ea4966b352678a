package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/config"
	"github.com/aretw0/distsim/internal/presentation/tui"
	"github.com/aretw0/distsim/pkg/adapters/memory"
	"github.com/aretw0/distsim/pkg/domain"
	tea "github.com/charmbracelet/bubbletea"
)

// WatchOptions configures an animated run.
type WatchOptions struct {
	RunOptions
	Interval time.Duration
	Speed    float64
	// Interactive selects the bubbletea view. Otherwise one line per step is printed.
	Interactive bool
	// Ticks replaces the wall clock of the line printer, mostly for tests.
	Ticks <-chan time.Time
}

// RunWatch runs an algorithm in wall-clock time so message traffic can be followed.
func RunWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts WatchOptions) (domain.Report, error) {
	g, alg, err := prepare(opts.RunOptions)
	if err != nil {
		return domain.Report{}, err
	}

	board := memory.NewBoard(0)
	sim := NewSimulator(cfg, logger, opts.Debug, distsim.WithName(alg.Name), distsim.WithRenderer(board))
	defer sim.Close()

	if err := sim.ImportExport(g); err != nil {
		return domain.Report{}, err
	}
	if err := sim.Run(ctx, alg.Source); err != nil {
		return domain.Report{}, err
	}

	driverOpts := []distsim.DriverOption{distsim.WithInterval(opts.Interval), distsim.WithSpeed(opts.Speed)}
	if opts.Ticks != nil {
		driverOpts = append(driverOpts, distsim.WithTicks(opts.Ticks))
	}

	if opts.Interactive {
		step := distsim.NewDriver(sim, driverOpts...).Step()
		interval := opts.Interval
		if interval <= 0 {
			interval = distsim.DefaultInterval
		}
		model := tui.NewWatchModel(sim, board, alg.Name, step, interval)
		final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
		if err != nil {
			return sim.Report(), fmt.Errorf("watch: %w", err)
		}
		if wm, ok := final.(tui.WatchModel); ok {
			return wm.Report(), nil
		}
		return sim.Report(), nil
	}

	out := opts.Out
	driverOpts = append(driverOpts, distsim.UntilIdle(), distsim.OnStep(func(rep domain.Report) {
		printStep(out, rep)
	}))
	if err := distsim.NewDriver(sim, driverOpts...).Run(ctx); err != nil {
		return sim.Report(), err
	}
	rep := sim.Report()
	return rep, writeReport(opts.RunOptions, alg.Name, sim.Export(), rep)
}

func printStep(w io.Writer, rep domain.Report) {
	final := 0
	for _, p := range rep.Processes {
		if p.Status.Final() {
			final++
		}
	}
	fmt.Fprintf(w, "t=%-8.2f in-flight=%-4d delivered=%-5d final=%d/%d\n",
		rep.Now, rep.InFlight, rep.Delivered, final, len(rep.Processes))
}
