package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/distsim"
	"github.com/aretw0/distsim/internal/cli"
	"github.com/aretw0/distsim/internal/config"
	httpAdapter "github.com/aretw0/distsim/pkg/adapters/http"
	"github.com/aretw0/distsim/pkg/observability"
	"github.com/aretw0/distsim/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// openSessions builds the session manager over the configured topology store.
// The returned backend must be closed once the sessions are.
func openSessions(extra ...distsim.Option) (*session.Manager, *config.Backend, error) {
	backend, err := cfg.Store.Open()
	if err != nil {
		return nil, nil, err
	}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithSimulatorOptions(append(cfg.SimulatorOptions(), extra...)...),
	}
	if backend.Locker != nil {
		opts = append(opts, session.WithLocker(backend.Locker))
	}
	return session.NewManager(backend.Store, opts...), backend, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves simulation sessions over a JSON API. Every session owns a simulator that clients
edit, run and advance; reports stream to subscribers over Server-Sent Events and the
message counters are exported on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}

		sessions, backend, err := openSessions(distsim.WithLifecycleHooks(metrics.Hooks()))
		if err != nil {
			return err
		}
		defer backend.Close()
		defer sessions.Close()

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(sessions, httpAdapter.WithMetrics(reg), httpAdapter.WithLogger(logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting distsim server", "addr", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-sc.Done():
			logger.Info("Start shutdown...", "signal", sc.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "error", err)
				}
			}
			logger.Info("distsim server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", config.DefaultServerAddr, "Address to listen on")
}
