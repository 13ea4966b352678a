package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/config"
	"github.com/aretw0/distsim/internal/presentation/graph"
	"github.com/aretw0/distsim/internal/presentation/tui"
	"github.com/aretw0/distsim/internal/validator"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/aretw0/distsim/pkg/observability"
	"github.com/aretw0/distsim/pkg/samples"
)

// RunOptions configures a headless run.
type RunOptions struct {
	Topology     string
	Algorithm    string
	AlgorithmDir string
	// Horizon overrides the configured horizon, in units. Zero keeps the configured one.
	Horizon  float64
	JSON     bool
	Mermaid  bool
	Plain    bool
	Debug    bool
	Validate bool
	Out      io.Writer
}

// NewSimulator builds a simulator from the configuration. Debug traces every hook to the logger.
func NewSimulator(cfg *config.Config, logger *slog.Logger, debug bool, extra ...distsim.Option) *distsim.Simulator {
	opts := append(cfg.SimulatorOptions(), distsim.WithLogger(logger))
	if debug {
		opts = append(opts, distsim.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	return distsim.New(append(opts, extra...)...)
}

// prepare loads the topology and algorithm of a run and checks the graph against the
// family the algorithm expects when asked to.
func prepare(opts RunOptions) (domain.GraphExport, Algorithm, error) {
	g, err := ReadTopology(opts.Topology)
	if err != nil {
		return g, Algorithm{}, err
	}
	alg, err := ResolveAlgorithm(opts.Algorithm, opts.AlgorithmDir)
	if err != nil {
		return g, alg, err
	}
	if opts.Validate {
		kind := samples.Generic
		if alg.Sample != nil {
			kind = alg.Sample.GraphType
		}
		if err := validator.ValidateGraph(g, kind); err != nil {
			return g, alg, err
		}
	}
	return g, alg, nil
}

// Run executes an algorithm on a topology file until quiescence or the horizon and
// writes the final report.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts RunOptions) (domain.Report, error) {
	g, alg, err := prepare(opts)
	if err != nil {
		return domain.Report{}, err
	}

	sim := NewSimulator(cfg, logger, opts.Debug, distsim.WithName(alg.Name))
	defer sim.Close()

	if err := sim.ImportExport(g); err != nil {
		return domain.Report{}, err
	}
	if err := sim.Run(ctx, alg.Source); err != nil {
		return domain.Report{}, err
	}

	horizon := cfg.Simulation.Horizon
	if opts.Horizon > 0 {
		horizon = opts.Horizon
	}
	rep, err := sim.Settle(ctx, config.Duration(horizon))
	if err != nil {
		return rep, err
	}
	logger.Info("Run finished", "run", rep.RunID, "algorithm", alg.Name, "now", rep.Now, "delivered", rep.Delivered)

	return rep, writeReport(opts, alg.Name, sim.Export(), rep)
}

func writeReport(opts RunOptions, title string, g domain.GraphExport, rep domain.Report) error {
	out := opts.Out
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	md := tui.ReportMarkdown(title, rep)
	if opts.Mermaid {
		md += "\n```mermaid\n" + graph.GenerateMermaid(g, rep.Processes) + "```\n"
	}
	if !opts.Plain {
		rendered, err := tui.NewRenderer()(md)
		if err == nil {
			md = rendered
		}
	}
	if _, err := io.WriteString(out, md); err != nil {
		return err
	}
	if !rep.Quiescent {
		printSystemMessage(out, "Horizon reached with %d messages in flight", rep.InFlight)
	}
	return nil
}

// Validate checks a topology file against the graph family of an algorithm.
func Validate(topologyPath, algorithm, dir string) error {
	_, _, err := prepare(RunOptions{
		Topology:     topologyPath,
		Algorithm:    algorithm,
		AlgorithmDir: dir,
		Validate:     true,
	})
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
