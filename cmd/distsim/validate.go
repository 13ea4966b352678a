package main

import (
	"fmt"

	"github.com/aretw0/distsim/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <topology> [algorithm]",
	Short: "Check a topology for consistency",
	Long: `Reports channels with unknown endpoints, missing initiators and processes that no
initiator can reach. With an algorithm, also checks the graph family it expects
(directed, ring or acyclic).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		algorithm := "template"
		if len(args) > 1 {
			algorithm = args[1]
		}
		dir, _ := cmd.Flags().GetString("algorithms")
		if err := cli.Validate(args[0], algorithm, dir); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Topology is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("algorithms", "", "Directory of .lua algorithms looked up by name")
}
