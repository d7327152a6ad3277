package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kube-topology/internal/config"
	"kube-topology/internal/metrics"
	"kube-topology/internal/server"
	"kube-topology/internal/source"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [snapshot_file]",
	Short: "Serve cluster snapshots to a live visualisation",
	Long: `kube-topology serve polls a snapshot source and serves the latest snapshot
over HTTP:

  GET /api/v1/topology-data        the current snapshot as JSON
  GET /api/v1/topology-data/watch  websocket, a snapshot on connect and on every change
  GET /metrics                     prometheus metrics
  GET /ping                        liveness

File sources are also watched, so edits are pushed without waiting for the
next poll.

Example:
  kube-topology serve --source=kube --addr=:8080 --poll-interval=10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndMerge(cmd, args)
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg, "serve")
	if err != nil {
		return err
	}

	src, err := source.New(cfg.Source, log)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(src, cfg.Server, log, metrics.NewRegistry())
	return srv.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	registerSourceFlags(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Duration("poll-interval", config.DefaultConfig().Server.PollInterval, "How often the source is polled")
}
