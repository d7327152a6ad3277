package chart

import (
	"context"
	"time"

	"kube-topology/internal/graph"
	"kube-topology/internal/hive"
	"kube-topology/internal/metrics"
	"kube-topology/internal/presentation"
	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// HiveConfig configures a hive chart. Zero values take the defaults; a zero
// Width or Height follows the container.
type HiveConfig struct {
	Width  float64
	Height float64
	// OuterRadius is the length of axes whose Radius is zero. The default
	// axes all carry their own radius and ignore it.
	OuterRadius float64
	InnerRadius float64
	NodeClickFn NodeClickFunc
	Axes        []hive.Axis
	Kinds       graph.KindFilter
	Cache       *graph.Cache
	Clock       clock.WithDelayedExecution
	ResizeDelay time.Duration
	Logger      *logrus.Entry
	Metrics     *metrics.Registry
}

// HiveChart is a radial chart with one axis per resource kind.
type HiveChart struct {
	*base
	cfg         HiveConfig
	layout      *hive.Layout
	width       float64
	height      float64
	translation graph.Point
	tooltip     string
}

// InitHiveChart creates a hive chart in container and lays out snapshot. A
// nil snapshot is ErrInvalidInput.
func InitHiveChart(container Container, snapshot *resource.Snapshot, cfg HiveConfig) (*HiveChart, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}

	b, err := newBase("hive", container, snapshot, cfg.NodeClickFn, cfg.Kinds, cfg.Cache, cfg.Logger, cfg.Metrics)
	if err != nil {
		return nil, err
	}

	c := &HiveChart{
		base: b,
		cfg:  cfg,
		layout: hive.New(hive.Config{
			InnerRadius: cfg.InnerRadius,
			OuterRadius: cfg.OuterRadius,
			Axes:        cfg.Axes,
		}),
	}
	c.watch(cfg.Clock, cfg.ResizeDelay, c.adjust)
	c.adjust()
	c.refresh()

	c.log.WithField("nodes", len(c.graph.Nodes)).Debug("hive chart initialised")
	return c, nil
}

// Layout returns the radial layout.
func (c *HiveChart) Layout() *hive.Layout {
	return c.layout
}

// Size returns the drawing area.
func (c *HiveChart) Size() (width, height float64) {
	return c.width, c.height
}

// Translation returns the offset of the layout origin within the drawing
// area.
func (c *HiveChart) Translation() graph.Point {
	return c.translation
}

// adjust recomputes the drawing area. Positions do not depend on it, so
// nothing is re-laid out.
func (c *HiveChart) adjust() {
	w, h := c.container.Size()
	if c.cfg.Width > 0 {
		w = c.cfg.Width
	}
	if c.cfg.Height > 0 {
		h = c.cfg.Height
	}
	c.width, c.height = w, h
	c.translation = hive.Translation(w, h)
	c.metrics.RecordRecomputation(c.label)
}

func (c *HiveChart) refresh() {
	c.digest()
	c.layout.Apply(c.graph)
}

// Data replaces the items and relations and lays them out again.
func (c *HiveChart) Data(snapshot *resource.Snapshot) error {
	if c.loop.isClosed() {
		return ErrClosed
	}
	c.setData(snapshot)
	c.refresh()
	return nil
}

// Kinds replaces the kind filter and lays the graph out again.
func (c *HiveChart) Kinds(filter graph.KindFilter) error {
	if c.loop.isClosed() {
		return ErrClosed
	}
	c.kinds = filter
	c.refresh()
	return nil
}

// Link returns the curve drawn for e.
func (c *HiveChart) Link(e *graph.Edge) hive.Curve {
	return c.layout.Link(e)
}

// OnHoverNode highlights the neighbourhood of n and shows its tooltip.
func (c *HiveChart) OnHoverNode(n *graph.Node) error {
	if err := c.base.OnHoverNode(n); err != nil {
		return err
	}
	c.tooltip = presentation.Tooltip(n)
	return nil
}

// OnLeave clears highlighting and hides the tooltip.
func (c *HiveChart) OnLeave() error {
	if err := c.base.OnLeave(); err != nil {
		return err
	}
	c.tooltip = ""
	return nil
}

// Tooltip returns the tooltip currently shown, if any.
func (c *HiveChart) Tooltip() string {
	return c.tooltip
}

// Run executes queued work, such as debounced resizes, until ctx is done
// or the chart is closed.
func (c *HiveChart) Run(ctx context.Context) error {
	if !c.loop.enter() {
		return ErrClosed
	}
	defer func() {
		c.loop.exit()
		c.loop.final()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.loop.wake:
		}
		if c.loop.isClosed() {
			return nil
		}
		c.loop.drain()
	}
}

// Close tears the chart down, keeping node state in the cache.
func (c *HiveChart) Close() error {
	return c.close(func() {
		c.tooltip = ""
	})
}
