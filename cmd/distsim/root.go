package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/distsim/internal/cli"
	"github.com/aretw0/distsim/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "distsim",
	Short: "distsim simulates distributed algorithms on message-passing networks",
	Long: `distsim runs distributed algorithms written in Lua on a network of processes connected
by channels, delivering messages in simulated time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		var err error
		if cmd.Flags().Changed("config") {
			cfg, err = config.Load(path)
		} else {
			cfg, err = config.LoadOrDefault(path)
		}
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
		}
		logger, err = cli.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error or off")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}
