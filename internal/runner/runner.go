// Package runner implements the one-shot render pipeline: take a snapshot,
// lay it out, write the rendered graph and optionally push it to Neo4j.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"kube-topology/internal/chart"
	"kube-topology/internal/config"
	"kube-topology/internal/formatter"
	"kube-topology/internal/graph"
	"kube-topology/internal/logger"
	"kube-topology/internal/metrics"
	"kube-topology/internal/neo4j"
	"kube-topology/internal/resource"
	"kube-topology/internal/source"

	"github.com/sirupsen/logrus"
)

const (
	defaultWidth  = 960.0
	defaultHeight = 600.0
)

// Sink receives the laid out graph. *neo4j.Client is the production sink.
type Sink interface {
	VerifyConnectivity(ctx context.Context) error
	UpdateGraph(ctx context.Context, g *graph.Graph) error
	Close(ctx context.Context) error
}

// SinkFactory opens a sink for the given connection settings.
type SinkFactory func(cfg config.Neo4jConfig, log *logrus.Entry) (Sink, error)

// Options overrides the pieces Run would otherwise build from the config.
type Options struct {
	// Source defaults to the one described by cfg.Source.
	Source source.Source
	// Out receives the rendered graph when no output path is configured.
	// Defaults to stdout.
	Out     io.Writer
	NewSink SinkFactory
	Logger  *logrus.Entry
	Metrics *metrics.Registry
}

// closer is implemented by both chart types.
type closer interface {
	Graph() *graph.Graph
	Close() error
}

// Run executes the main logic of kube-topology.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	log := logger.OrDiscard(opts.Logger)

	// Validate Neo4j configuration early
	if cfg.Update {
		if err := validateNeo4jConfig(&cfg.Neo4j); err != nil {
			return err
		}
	}

	src := opts.Source
	if src == nil {
		var err error
		src, err = source.New(cfg.Source, log)
		if err != nil {
			return fmt.Errorf("failed to create source: %w", err)
		}
	}

	log.WithField("source", src.Name()).Info("taking snapshot")
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to take snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("failed to take snapshot from %s: %w", src.Name(), err)
	}
	snap.Normalize()

	log.WithFields(logrus.Fields{
		"items":     snap.Items.Len(),
		"relations": len(snap.Relations),
		"mode":      cfg.Layout.Mode,
	}).Info("laying out graph")
	c, err := layout(snap, &cfg.Layout, log, opts.Metrics)
	if err != nil {
		return fmt.Errorf("failed to lay out graph: %w", err)
	}
	// Closing detaches the items, so everything below must run first.
	defer func() {
		if err := c.Close(); err != nil {
			log.WithError(err).Debug("closing chart")
		}
	}()

	g := c.Graph()
	if err := writeOutput(g, &cfg.Output, opts.Out); err != nil {
		return err
	}

	if !cfg.Update {
		return nil
	}

	newSink := opts.NewSink
	if newSink == nil {
		newSink = newNeo4jSink
	}
	return updateNeo4jDatabase(ctx, g, &cfg.Neo4j, newSink, log)
}

func layout(snap *resource.Snapshot, cfg *config.LayoutConfig, log *logrus.Entry, m *metrics.Registry) (closer, error) {
	width, height := cfg.Width, cfg.Height
	if width == 0 {
		width = defaultWidth
	}
	if height == 0 {
		height = defaultHeight
	}
	vp := chart.NewViewport(width, height)
	kinds := kindFilter(cfg.Kinds)

	switch cfg.Mode {
	case "hive":
		c, err := chart.InitHiveChart(vp, snap, chart.HiveConfig{
			InnerRadius: cfg.InnerRadius,
			OuterRadius: cfg.OuterRadius,
			Kinds:       kinds,
			Logger:      log,
			Metrics:     m,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "", "force":
		c, err := chart.InitForceChart(vp, snap, chart.ForceConfig{
			Radius:       cfg.Radius,
			Charge:       cfg.Charge,
			LinkDistance: cfg.LinkDistance,
			Seed:         cfg.Seed,
			Kinds:        kinds,
			Logger:       log,
			Metrics:      m,
		})
		if err != nil {
			return nil, err
		}
		ticks, err := c.Settle(cfg.MaxTicks)
		if err != nil {
			return nil, err
		}
		log.WithField("ticks", ticks).Debug("simulation settled")
		return c, nil
	default:
		return nil, fmt.Errorf("unknown layout mode %q", cfg.Mode)
	}
}

func kindFilter(kinds []string) graph.KindFilter {
	if len(kinds) == 0 {
		return nil
	}
	ks := make([]resource.Kind, 0, len(kinds))
	for _, k := range kinds {
		ks = append(ks, resource.Kind(k).Normalize())
	}
	return graph.FilterOf(ks...)
}

func writeOutput(g *graph.Graph, cfg *config.OutputConfig, out io.Writer) error {
	rendered, err := formatter.Render(g, formatter.Format(cfg.Format))
	if err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	if len(rendered) == 0 || rendered[len(rendered)-1] != '\n' {
		rendered += "\n"
	}

	if cfg.Path != "" {
		if err := os.WriteFile(cfg.Path, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.Path, err)
		}
		return nil
	}

	if out == nil {
		out = os.Stdout
	}
	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newNeo4jSink(cfg config.Neo4jConfig, log *logrus.Entry) (Sink, error) {
	client, err := neo4j.NewClient(cfg.URI, cfg.User, cfg.Password, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func updateNeo4jDatabase(ctx context.Context, g *graph.Graph, neo4jCfg *config.Neo4jConfig, newSink SinkFactory, log *logrus.Entry) error {
	log.WithField("uri", neo4jCfg.URI).Info("connecting to neo4j")

	sink, err := newSink(*neo4jCfg, log)
	if err != nil {
		return fmt.Errorf("failed to create neo4j client: %w", err)
	}
	defer sink.Close(ctx)

	if err := sink.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	log.Info("updating neo4j database")
	if err := sink.UpdateGraph(ctx, g); err != nil {
		return fmt.Errorf("failed to update neo4j graph: %w", err)
	}

	log.WithField("nodes", len(g.Nodes)).Info("neo4j database updated")
	return nil
}

func validateNeo4jConfig(cfg *config.Neo4jConfig) error {
	if cfg.URI == "" || cfg.User == "" || cfg.Password == "" {
		return fmt.Errorf("neo4j-uri, neo4j-user, and neo4j-pass are required when updating neo4j. Please configure them in .kube-topology.yaml or pass them as flags")
	}
	return nil
}
