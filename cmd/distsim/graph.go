package main

import (
	"fmt"
	"io"

	"github.com/aretw0/distsim/internal/cli"
	"github.com/aretw0/distsim/internal/presentation/graph"
	"github.com/aretw0/distsim/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <topology> [algorithm]",
	Short: "Export the topology as a Mermaid diagram",
	Long: `Reads a topology file and outputs a Mermaid diagram (graph LR) of its processes and
channels. With an algorithm, the run is settled first and the parent of every process
and its final status are drawn over the topology.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := cli.ReadTopology(args[0])
		if err != nil {
			return err
		}

		var processes []domain.ProcessSnapshot
		if len(args) == 2 {
			sc := cli.NewSignalContext(cmd.Context())
			defer sc.Cancel()

			opts := cli.RunOptions{Topology: args[0], Algorithm: args[1], JSON: true, Out: io.Discard}
			opts.AlgorithmDir, _ = cmd.Flags().GetString("algorithms")
			rep, err := cli.Run(sc, cfg, logger, opts)
			if err != nil {
				return err
			}
			processes = rep.Processes
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, processes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("algorithms", "", "Directory of .lua algorithms looked up by name")
}
