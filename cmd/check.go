package cmd

import (
	"fmt"

	"kube-topology/internal/config"
	"kube-topology/internal/neo4j"
	"kube-topology/internal/source"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate kube-topology configuration and connections",
	Long:  `Validate kube-topology configuration and verify connections.`,
}

var checkDatabaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Check Neo4j database connectivity",
	Long: `Verify that kube-topology can connect to the Neo4j database using
the credentials from the configuration file (.kube-topology.yaml).

This command will:
  1. Load the configuration from .kube-topology.yaml
  2. Attempt to connect to the Neo4j database
  3. Verify connectivity
  4. Report the connection status

Example:
  kube-topology check database`,
	RunE: runCheckDatabase,
}

var checkSourceCmd = &cobra.Command{
	Use:   "source [snapshot_file]",
	Short: "Check that a snapshot can be read from the configured source",
	Long: `Take one snapshot from the configured source and report how many items and
relations it holds.

Example:
  kube-topology check source --source=kube --namespace=default`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckSource,
}

func runCheckDatabase(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := setupLogger(cfg, "check")
	if err != nil {
		return err
	}

	if !config.Exists() {
		fmt.Fprintln(out, "⚠ Warning: No configuration file found.")
		fmt.Fprintln(out, "  Run 'kube-topology init' to create one.")
		fmt.Fprintln(out, "  Using default values...")
		fmt.Fprintln(out)
	}

	// Display connection info (without password)
	fmt.Fprintln(out, "Neo4j Connection Settings:")
	fmt.Fprintf(out, "  URI:  %s\n", cfg.Neo4j.URI)
	fmt.Fprintf(out, "  User: %s\n", cfg.Neo4j.User)
	fmt.Fprintln(out)

	if cfg.Neo4j.Password == "" {
		return fmt.Errorf("neo4j password is not set in configuration file")
	}

	log.WithField("uri", cfg.Neo4j.URI).Info("connecting to neo4j")
	ctx := cmd.Context()

	client, err := neo4j.NewClient(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, log)
	if err != nil {
		return fmt.Errorf("failed to create neo4j client: %w", err)
	}
	defer client.Close(ctx)

	if err := client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	fmt.Fprintln(out, "✓ Successfully connected to Neo4j database!")
	fmt.Fprintln(out, "  The database is ready to use.")

	return nil
}

func runCheckSource(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.LoadAndMerge(cmd, args)
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg, "check")
	if err != nil {
		return err
	}

	src, err := source.New(cfg.Source, log)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	snap, err := src.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	snap.Normalize()

	fmt.Fprintf(out, "✓ Read snapshot from %s\n", src.Name())
	fmt.Fprintf(out, "  Items:     %d\n", snap.Items.Len())
	fmt.Fprintf(out, "  Relations: %d\n", len(snap.Relations))
	if skipped := snap.Items.Skipped(); skipped > 0 {
		fmt.Fprintf(out, "  Skipped:   %d items without an id\n", skipped)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.AddCommand(checkDatabaseCmd)
	checkCmd.AddCommand(checkSourceCmd)
	registerSourceFlags(checkSourceCmd)
}
