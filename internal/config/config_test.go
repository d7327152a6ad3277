package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileType)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func testCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "render"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("source", "file", "")
	cmd.Flags().String("url", "", "")
	cmd.Flags().String("file", "", "")
	cmd.Flags().String("mode", "force", "")
	cmd.Flags().Float64("width", 0, "")
	cmd.Flags().Int("max-ticks", 0, "")
	cmd.Flags().StringSlice("kinds", nil, "")
	cmd.Flags().String("format", "json", "")
	cmd.Flags().Duration("poll-interval", 0, "")
	cmd.Flags().String("neo4j-pass", "", "")
	return cmd
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
source:
  type: http
  url: http://localhost:8080/api/v1/topology-data
layout:
  mode: hive
  outer_radius: 500
server:
  poll_interval: 2s
neo4j:
  password: secret
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Source.Type)
	assert.Equal(t, "hive", cfg.Layout.Mode)
	assert.Equal(t, 500.0, cfg.Layout.OuterRadius)
	assert.Equal(t, 2*time.Second, cfg.Server.PollInterval)
	assert.Equal(t, "secret", cfg.Neo4j.Password)

	// Untouched keys keep their defaults
	assert.Equal(t, 60.0, cfg.Layout.InnerRadius)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "json", cfg.Output.Format)
	require.NoError(t, Validate(cfg))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, Exists())
}

func TestLoadAndMerge(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
layout:
  mode: hive
  max_ticks: 50
output:
  format: dot
`)

	cmd := testCommand()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--config", path,
		"--format", "cypher",
		"--kinds", "Pod,Node",
		"--neo4j-pass", "flag-secret",
	}))

	cfg, err := LoadAndMerge(cmd, []string{"snapshot.json"})
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Source.Type)
	assert.Equal(t, "snapshot.json", cfg.Source.Path)
	assert.Equal(t, "hive", cfg.Layout.Mode, "file value without a flag")
	assert.Equal(t, 50, cfg.Layout.MaxTicks)
	assert.Equal(t, "cypher", cfg.Output.Format, "flag overrides file")
	assert.Equal(t, []string{"Pod", "Node"}, cfg.Layout.Kinds)
	assert.Equal(t, "flag-secret", cfg.Neo4j.Password)
}

func TestLoadAndMergeRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cases := map[string][]string{
		"unknown mode":      {"--mode", "circle", "--file", "x.json"},
		"unknown format":    {"--format", "svg", "--file", "x.json"},
		"unknown kind":      {"--kinds", "Ingress", "--file", "x.json"},
		"http without url":  {"--source", "http"},
		"malformed url":     {"--source", "http", "--url", "not a url"},
		"missing file":      {"--source", "file"},
		"negative width":    {"--width=-1", "--file", "x.json"},
		"non-positive poll": {"--poll-interval", "0s", "--file", "x.json"},
	}

	for name, flags := range cases {
		t.Run(name, func(t *testing.T) {
			cmd := testCommand()
			require.NoError(t, cmd.Flags().Parse(flags))

			_, err := LoadAndMerge(cmd, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Neo4j.Password = "s3cret"
	cfg.Layout.Mode = "hive"
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", loaded.Neo4j.Password)
	assert.Equal(t, "hive", loaded.Layout.Mode)
	assert.Equal(t, "neo4j:community", loaded.Neo4j.DockerImage)
}
