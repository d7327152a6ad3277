package cmd

import (
	"kube-topology/internal/config"
	"kube-topology/internal/metrics"
	"kube-topology/internal/runner"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [snapshot_file]",
	Short: "Lay out a cluster snapshot and write the positioned graph",
	Long: `kube-topology render reads a cluster snapshot, runs the force-directed or hive
layout over it and writes the positioned graph as JSON, DOT or Cypher. The
snapshot can be a JSON or YAML document of items and relations, a kubectl
List, a Graphviz DOT file, an HTTP endpoint or a live cluster.

Examples:
  # Lay out a snapshot file and print JSON
  kube-topology render snapshot.json

  # Hive plot of the live cluster as DOT
  kube-topology render --source=kube --mode=hive --format=dot -o cluster.dot

  # Lay out and push the graph to Neo4j
  kube-topology render snapshot.yaml --update --neo4j-pass=secret`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndMerge(cmd, args)
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg, "render")
	if err != nil {
		return err
	}

	return runner.Run(cmd.Context(), cfg, runner.Options{
		Out:     cmd.OutOrStdout(),
		Logger:  log,
		Metrics: metrics.NewRegistry(),
	})
}

func init() {
	rootCmd.AddCommand(renderCmd)
	registerSourceFlags(renderCmd)
	registerLayoutFlags(renderCmd)
	registerOutputFlags(renderCmd)
	renderCmd.Flags().Bool("update", false, "Update a Neo4j database with the graph")
	registerNeo4jFlags(renderCmd)
}

func registerSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "file", "Snapshot source (file, http, kube)")
	cmd.Flags().String("file", "", "Path to a snapshot file (json, yaml, dot)")
	cmd.Flags().String("url", "", "URL of a topology-data endpoint")
	cmd.Flags().String("kubeconfig", "", "Path to a kubeconfig file (default in-cluster, then ~/.kube/config)")
	cmd.Flags().String("namespace", "", "Namespace to read (default all namespaces)")
}

func registerLayoutFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "force", "Layout (force, hive)")
	cmd.Flags().Float64("width", 960, "Viewport width")
	cmd.Flags().Float64("height", 600, "Viewport height")
	cmd.Flags().Int("max-ticks", 300, "Maximum simulation ticks before the layout is written")
	cmd.Flags().Uint64("seed", 0, "Seed for initial node placement")
	cmd.Flags().StringSlice("kinds", nil, "Only show these kinds (e.g. Pod,Node)")
}

func registerOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "json", "Output format for the graph (json, dot, cypher)")
	cmd.Flags().StringP("output", "o", "", "Write the graph to this file instead of stdout")
}

func registerNeo4jFlags(cmd *cobra.Command) {
	cmd.Flags().String("neo4j-uri", "bolt://localhost:7687", "URI for the Neo4j database")
	cmd.Flags().String("neo4j-user", "neo4j", "Username for the Neo4j database")
	cmd.Flags().String("neo4j-pass", "", "Password for the Neo4j database")
}
