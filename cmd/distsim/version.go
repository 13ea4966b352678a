package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/distsim"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of distsim",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "distsim version %s\n", strings.TrimSpace(distsim.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
