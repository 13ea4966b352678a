package main

import (
	"github.com/aretw0/distsim/internal/cli"
	"github.com/aretw0/distsim/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <topology> <algorithm>",
	Short: "Animate a run in the terminal",
	Long: `Runs the algorithm in wall-clock time. On a terminal the processes, their parents and
the messages in flight are redrawn live (space pauses, n steps, +/- change speed, q quits).
Otherwise one progress line is printed per step until the run settles.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		opts := cli.WatchOptions{RunOptions: runOptions(cmd, args)}
		opts.Interval, _ = cmd.Flags().GetDuration("interval")
		opts.Speed, _ = cmd.Flags().GetFloat64("speed")
		opts.Interactive = cli.IsTerminal(opts.Out) && !opts.JSON

		if opts.Interactive {
			tui.PrintBanner(opts.Out)
		}
		_, err := cli.RunWatch(sc, cfg, logger, opts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addRunFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "Wall-clock time between frames (default 50ms)")
	watchCmd.Flags().Float64("speed", 1, "Simulated units per wall-clock second")
}
