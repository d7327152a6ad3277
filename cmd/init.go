package cmd

import (
	"crypto/rand"
	"fmt"
	"os"

	"kube-topology/internal/config"
	"kube-topology/internal/docker"
	"kube-topology/internal/git"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize kube-topology configuration",
	Long: `Initialize kube-topology configuration and settings.

Creates a .kube-topology.yaml configuration file in the current directory
with default values and a randomly generated Neo4j password. Also creates the
neo4j-data directory for Docker volume mounting.

The configuration file will be created with the following default values:
  - source.type: file
  - layout.mode: force
  - output.format: json
  - server.addr: :8080
  - neo4j.uri: bolt://localhost:7687
  - neo4j.user: neo4j
  - neo4j.password: (randomly generated)
  - neo4j.docker_image: neo4j:community

Example:
  kube-topology init`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configPath := fmt.Sprintf("%s.%s", config.ConfigFileName, config.ConfigFileType)

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	cfg := config.DefaultConfig()

	password, err := generateRandomPassword(16)
	if err != nil {
		return fmt.Errorf("failed to generate random password: %w", err)
	}
	cfg.Neo4j.Password = password

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if err := os.MkdirAll(docker.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", docker.DataDir, err)
	}

	fmt.Fprintf(out, "✓ Created configuration file: %s\n\n", configPath)
	fmt.Fprintln(out, "Default configuration:")
	fmt.Fprintf(out, "  source.type: %s\n", cfg.Source.Type)
	fmt.Fprintf(out, "  layout.mode: %s\n", cfg.Layout.Mode)
	fmt.Fprintf(out, "  output.format: %s\n", cfg.Output.Format)
	fmt.Fprintf(out, "  server.addr: %s\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  neo4j.uri: %s\n", cfg.Neo4j.URI)
	fmt.Fprintf(out, "  neo4j.user: %s\n", cfg.Neo4j.User)
	fmt.Fprintf(out, "  neo4j.password: %s\n", cfg.Neo4j.Password)
	fmt.Fprintf(out, "  neo4j.docker_image: %s\n\n", cfg.Neo4j.DockerImage)
	fmt.Fprintf(out, "✓ Created data directory: %s\n", docker.DataDir)

	if err := git.UpdateGitignore(".", git.IgnoredEntries, out); err != nil {
		// If gitignore update fails, print a warning but don't fail the command
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to update .gitignore: %v\n", err)
		fmt.Fprintf(out, "Please manually add '%s' and '%s' to your .gitignore file.\n", git.IgnoredEntries[0], git.IgnoredEntries[1])
	}

	return nil
}

// generateRandomPassword generates a random alphanumeric password of the specified length
func generateRandomPassword(length int) (string, error) {
	// Neo4j splits NEO4J_AUTH on '/', so only alphanumerics are used.
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	for i := range bytes {
		bytes[i] = charset[int(bytes[i])%len(charset)]
	}
	return string(bytes), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
