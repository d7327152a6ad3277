package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ConfigFileName = ".kube-topology"
	ConfigFileType = "yaml"
)

// ErrInvalidConfig is returned when the merged configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the configuration for kube-topology.
type Config struct {
	Source SourceConfig `mapstructure:"source"`
	Layout LayoutConfig `mapstructure:"layout"`
	Output OutputConfig `mapstructure:"output"`
	Server ServerConfig `mapstructure:"server"`
	Neo4j  Neo4jConfig  `mapstructure:"neo4j"`
	Log    LogConfig    `mapstructure:"log"`
	Update bool         `mapstructure:"update"`
}

// SourceConfig selects where snapshots come from.
type SourceConfig struct {
	Type       string `mapstructure:"type" validate:"oneof=file http kube"`
	Path       string `mapstructure:"path" validate:"required_if=Type file"`
	URL        string `mapstructure:"url" validate:"required_if=Type http,omitempty,url"`
	Kubeconfig string `mapstructure:"kubeconfig"`
	Namespace  string `mapstructure:"namespace"`
}

// LayoutConfig holds the chart settings. Zero values fall back to the
// chart defaults.
type LayoutConfig struct {
	Mode         string   `mapstructure:"mode" validate:"oneof=force hive"`
	Width        float64  `mapstructure:"width" validate:"gte=0"`
	Height       float64  `mapstructure:"height" validate:"gte=0"`
	Radius       float64  `mapstructure:"radius" validate:"gte=0"`
	Charge       float64  `mapstructure:"charge"`
	LinkDistance float64  `mapstructure:"link_distance" validate:"gte=0"`
	MaxTicks     int      `mapstructure:"max_ticks" validate:"gte=0"`
	Seed         uint64   `mapstructure:"seed"`
	InnerRadius  float64  `mapstructure:"inner_radius" validate:"gte=0"`
	OuterRadius  float64  `mapstructure:"outer_radius" validate:"gte=0"`
	Kinds        []string `mapstructure:"kinds" validate:"dive,oneof=Pod Node Service ReplicationController ReplicaSet Deployment Namespace Container Other"`
}

// OutputConfig selects the rendered output. An empty path writes to stdout.
type OutputConfig struct {
	Format string `mapstructure:"format" validate:"oneof=json dot cypher"`
	Path   string `mapstructure:"path"`
}

// ServerConfig holds the data-source endpoint settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// Neo4jConfig holds the Neo4j connection settings.
type Neo4jConfig struct {
	URI         string `mapstructure:"uri"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DockerImage string `mapstructure:"docker_image"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type: "file",
		},
		Layout: LayoutConfig{
			Mode:         "force",
			Width:        960,
			Height:       600,
			Radius:       20,
			Charge:       -60,
			LinkDistance: 100,
			MaxTicks:     300,
			InnerRadius:  60,
			OuterRadius:  400,
		},
		Output: OutputConfig{
			Format: "json",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			PollInterval: 5 * time.Second,
		},
		Neo4j: Neo4jConfig{
			URI:         "bolt://localhost:7687",
			User:        "neo4j",
			Password:    "",
			DockerImage: "neo4j:community",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from the .kube-topology.yaml file in the
// current directory or $HOME.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the configuration from path, or searches the default
// locations when path is empty. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	cfg := DefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadAndMerge loads configuration from file and merges it with CLI flags,
// then validates the result.
// Priority: flags > config file > defaults
func LoadAndMerge(cmd *cobra.Command, args []string) (*Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	// Source
	if flags.Changed("source") {
		cfg.Source.Type, _ = flags.GetString("source")
	}
	if flags.Changed("url") {
		cfg.Source.URL, _ = flags.GetString("url")
	}
	if flags.Changed("kubeconfig") {
		cfg.Source.Kubeconfig, _ = flags.GetString("kubeconfig")
	}
	if flags.Changed("namespace") {
		cfg.Source.Namespace, _ = flags.GetString("namespace")
	}

	// Handle snapshot file from args or flag
	if len(args) > 0 {
		cfg.Source.Path = args[0]
		if !flags.Changed("source") {
			cfg.Source.Type = "file"
		}
	} else if flags.Changed("file") {
		cfg.Source.Path, _ = flags.GetString("file")
	}

	// Layout
	if flags.Changed("mode") {
		cfg.Layout.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("width") {
		cfg.Layout.Width, _ = flags.GetFloat64("width")
	}
	if flags.Changed("height") {
		cfg.Layout.Height, _ = flags.GetFloat64("height")
	}
	if flags.Changed("max-ticks") {
		cfg.Layout.MaxTicks, _ = flags.GetInt("max-ticks")
	}
	if flags.Changed("seed") {
		cfg.Layout.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("kinds") {
		cfg.Layout.Kinds, _ = flags.GetStringSlice("kinds")
	}

	// Output
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("output") {
		cfg.Output.Path, _ = flags.GetString("output")
	}

	// Server
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("poll-interval") {
		cfg.Server.PollInterval, _ = flags.GetDuration("poll-interval")
	}

	// Neo4j
	if flags.Changed("update") {
		cfg.Update, _ = flags.GetBool("update")
	}
	if flags.Changed("neo4j-uri") {
		cfg.Neo4j.URI, _ = flags.GetString("neo4j-uri")
	}
	if flags.Changed("neo4j-user") {
		cfg.Neo4j.User, _ = flags.GetString("neo4j-user")
	}
	if flags.Changed("neo4j-pass") {
		cfg.Neo4j.Password, _ = flags.GetString("neo4j-pass")
	}

	// Logging
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cfg against its field constraints.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Save writes the configuration to a .kube-topology.yaml file in the current directory.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = fmt.Sprintf("%s.%s", ConfigFileName, ConfigFileType)
	}

	v := viper.New()
	v.Set("source.type", cfg.Source.Type)
	v.Set("layout.mode", cfg.Layout.Mode)
	v.Set("output.format", cfg.Output.Format)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("log.level", cfg.Log.Level)
	v.Set("neo4j.uri", cfg.Neo4j.URI)
	v.Set("neo4j.user", cfg.Neo4j.User)
	v.Set("neo4j.password", cfg.Neo4j.Password)
	v.Set("neo4j.docker_image", cfg.Neo4j.DockerImage)

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// The file holds the Neo4j password.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set secure permissions on config file: %w", err)
	}

	return nil
}

// Exists checks if a config file exists in the current directory.
func Exists() bool {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(".")

	err := v.ReadInConfig()
	return err == nil
}
