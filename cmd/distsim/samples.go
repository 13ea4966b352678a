package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/distsim/internal/cli"
	"github.com/aretw0/distsim/internal/presentation/tui"
	"github.com/aretw0/distsim/pkg/samples"
	"github.com/spf13/cobra"
)

var samplesCmd = &cobra.Command{
	Use:   "samples [name]",
	Short: "List the bundled algorithms or print one of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			s, err := samples.Lookup(args[0])
			if err != nil {
				return err
			}
			src, err := s.Source()
			if err != nil {
				return err
			}
			_, err = out.Write(src)
			return err
		}

		var sb strings.Builder
		sb.WriteString("| Name | Title | Graph |\n|---|---|---|\n")
		for _, s := range samples.List() {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", s.Name, s.Title, s.GraphType)
		}
		md := sb.String()
		if cli.IsTerminal(out) {
			if rendered, err := tui.NewRenderer()(md); err == nil {
				md = rendered
			}
		}
		fmt.Fprint(out, md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(samplesCmd)
}
