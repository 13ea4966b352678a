package main

import (
	"github.com/aretw0/distsim/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <topology> <algorithm>",
	Short: "Run an algorithm on a topology until it settles",
	Long: `Imports a topology file (JSON or YAML), runs the algorithm on it until no message is in
flight or the horizon is reached, and prints the final state of every process.

The algorithm is either a path to a Lua script or the name of an algorithm in --algorithms
or among the bundled samples.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		opts := runOptions(cmd, args)
		_, err := cli.Run(sc, cfg, logger, opts)
		return err
	},
}

func runOptions(cmd *cobra.Command, args []string) cli.RunOptions {
	flags := cmd.Flags()
	opts := cli.RunOptions{
		Topology:  args[0],
		Algorithm: args[1],
		Out:       cmd.OutOrStdout(),
	}
	opts.AlgorithmDir, _ = flags.GetString("algorithms")
	opts.Horizon, _ = flags.GetFloat64("horizon")
	opts.JSON, _ = flags.GetBool("json")
	opts.Mermaid, _ = flags.GetBool("mermaid")
	opts.Debug, _ = flags.GetBool("debug")
	noValidate, _ := flags.GetBool("no-validate")
	opts.Validate = !noValidate
	plain, _ := flags.GetBool("plain")
	opts.Plain = plain || !cli.IsTerminal(opts.Out)
	return opts
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("algorithms", "", "Directory of .lua algorithms looked up by name")
	cmd.Flags().Float64("horizon", 0, "Simulated units to run before giving up (0 uses the configured horizon)")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	cmd.Flags().Bool("mermaid", false, "Append a Mermaid diagram with the spanning tree")
	cmd.Flags().Bool("plain", false, "Print markdown without terminal styling")
	cmd.Flags().Bool("debug", false, "Log every hook a process runs")
	cmd.Flags().Bool("no-validate", false, "Skip checking the topology against the algorithm's graph family")
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}
