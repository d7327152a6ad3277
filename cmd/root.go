package cmd

import (
	"os"

	"kube-topology/internal/config"
	"kube-topology/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kube-topology [command]",
	Short: "Lay out and export the resource graph of a Kubernetes cluster",
	Long: `kube-topology reads a snapshot of cluster resources and the relations between
them, lays it out as a force-directed graph or a hive plot, and exports the
result to JSON, DOT, Cypher or a Neo4j database. It can also serve snapshots
to a live visualisation over HTTP.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default .kube-topology.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

// loadConfig reads the configuration file and applies the persistent
// flags, for commands that take no source or layout flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
	}
	return cfg, nil
}

// setupLogger installs the process logger described by cfg and returns an
// entry for the named command.
func setupLogger(cfg *config.Config, command string) (*logrus.Entry, error) {
	l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(l)
	return l.WithField("command", command), nil
}
