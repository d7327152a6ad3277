package cmd

import (
	"io"

	"kube-topology/internal/config"
	"kube-topology/internal/metrics"
	"kube-topology/internal/runner"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [snapshot_file]",
	Short: "Update a Neo4j database with the cluster graph",
	Long: `kube-topology update lays out a cluster snapshot and pushes the resulting
graph to a Neo4j database.

Resources are stored as :Resource nodes carrying their kind, name and layout
position, and relations as :RELATES relationships, allowing you to query the
topology of your cluster. Resources that are no longer in the snapshot are
removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndMerge(cmd, args)
	if err != nil {
		return err
	}
	cfg.Update = true

	log, err := setupLogger(cfg, "update")
	if err != nil {
		return err
	}

	// Only the database receives the graph.
	return runner.Run(cmd.Context(), cfg, runner.Options{
		Out:     io.Discard,
		Logger:  log,
		Metrics: metrics.NewRegistry(),
	})
}

func init() {
	rootCmd.AddCommand(updateCmd)
	registerSourceFlags(updateCmd)
	registerLayoutFlags(updateCmd)
	registerNeo4jFlags(updateCmd)
}
