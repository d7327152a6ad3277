package cmd

import (
	"fmt"

	"kube-topology/internal/docker"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start Neo4j database in Docker",
	Long: `Start a Neo4j database container using Docker with the configuration
from the .kube-topology.yaml file. The container will use the neo4j-data
directory as a volume for data persistence.

This command will:
  - Pull the Neo4j image if not already downloaded
  - Start a Neo4j container in the background
  - Use the credentials from the configuration file
  - Mount the neo4j-data directory as a volume

Example:
  kube-topology start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := setupLogger(cfg, "start")
	if err != nil {
		return err
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	return docker.StartContainer(cmd.Context(), cli, docker.StartContainerOptions{
		Config: cfg,
		Out:    cmd.OutOrStdout(),
		Log:    log,
	})
}

func init() {
	rootCmd.AddCommand(startCmd)
}
