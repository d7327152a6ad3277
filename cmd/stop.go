package cmd

import (
	"kube-topology/internal/docker"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop and remove the Neo4j Docker container",
	Long: `Stop and remove the Neo4j Docker container started with 'kube-topology start'.

This command will:
  - Stop the running Neo4j container
  - Remove the container
  - Preserve the data in the neo4j-data directory

Example:
  kube-topology stop`,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	return docker.StopContainer(cmd.Context(), cli, cmd.OutOrStdout())
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
