package chart

import (
	"context"
	"time"

	"kube-topology/internal/force"
	"kube-topology/internal/graph"
	"kube-topology/internal/metrics"
	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

const (
	// DefaultRadius is the margin unpinned nodes keep from the viewport edges.
	DefaultRadius = 20.0

	// dragThreshold is how far a node must move for a drag to pin it.
	dragThreshold = 5.0
	// pinMargin is the band along the viewport edges in which a node is
	// never left pinned.
	pinMargin = 3.0
)

// ForceConfig configures a force-directed chart. Zero values take the
// defaults.
type ForceConfig struct {
	NodeClickFn NodeClickFunc
	Radius      float64
	// Force is an externally owned simulation, shared across charts. When
	// nil the chart creates its own from Charge, LinkDistance and Seed.
	Force        *force.Simulation
	Charge       float64
	LinkDistance float64
	Seed         uint64
	Kinds        graph.KindFilter
	// Cache carries layout state across chart instances.
	Cache       *graph.Cache
	Clock       clock.WithTickerAndDelayedExecution
	ResizeDelay time.Duration
	// TickFn is called after every simulation tick, e.g. to redraw.
	TickFn  func()
	Logger  *logrus.Entry
	Metrics *metrics.Registry
}

// ForceChart is a force-directed topology chart.
type ForceChart struct {
	*base
	cfg ForceConfig
	sim *force.Simulation

	// ownsSim is false when the simulation came from ForceConfig.Force.
	ownsSim bool
	loaded  []*graph.Node

	clock  clock.WithTickerAndDelayedExecution
	width  float64
	height float64
}

// InitForceChart creates a force-directed chart in container, digests
// snapshot and starts the simulation. A nil snapshot is ErrInvalidInput.
func InitForceChart(container Container, snapshot *resource.Snapshot, cfg ForceConfig) (*ForceChart, error) {
	if cfg.Radius == 0 {
		cfg.Radius = DefaultRadius
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}

	b, err := newBase("force", container, snapshot, cfg.NodeClickFn, cfg.Kinds, cfg.Cache, cfg.Logger, cfg.Metrics)
	if err != nil {
		return nil, err
	}

	sim := cfg.Force
	if sim == nil {
		sim = force.New(force.Config{
			Charge:       cfg.Charge,
			LinkDistance: cfg.LinkDistance,
			Radius:       cfg.Radius,
			Seed:         cfg.Seed,
		})
	} else {
		sim.SetRadius(cfg.Radius)
	}

	c := &ForceChart{base: b, cfg: cfg, sim: sim, ownsSim: cfg.Force == nil, clock: cfg.Clock}
	sim.OnTick(c.ticked)
	c.watch(cfg.Clock, cfg.ResizeDelay, c.adjust)
	c.adjust()

	c.log.WithField("nodes", len(c.graph.Nodes)).Debug("force chart initialised")
	return c, nil
}

// Simulation returns the simulation driving the chart.
func (c *ForceChart) Simulation() *force.Simulation {
	return c.sim
}

// Size returns the viewport the layout is constrained to.
func (c *ForceChart) Size() (width, height float64) {
	return c.width, c.height
}

func (c *ForceChart) ticked() {
	c.metrics.RecordTick()
	if c.cfg.TickFn != nil {
		c.cfg.TickFn()
	}
}

// adjust re-reads the container size and re-digests.
func (c *ForceChart) adjust() {
	c.width, c.height = c.container.Size()
	c.sim.Size(c.width, c.height)
	c.metrics.RecordRecomputation(c.label)
	c.refresh()
}

func (c *ForceChart) refresh() {
	c.digest()
	if c.width > 0 && c.height > 0 {
		c.sim.SetGraph(c.graph.Nodes, c.graph.Edges)
		c.loaded = c.graph.Nodes
		c.sim.Start()
	}
}

// holdsSim reports whether the simulation is still laying out this chart's
// nodes. A shared simulation may since have been handed another chart's.
func (c *ForceChart) holdsSim() bool {
	nodes := c.sim.Nodes()
	return len(nodes) > 0 && len(c.loaded) > 0 && nodes[0] == c.loaded[0]
}

// Data replaces the items and relations and re-digests. Nodes that survive
// keep their position and pin state.
func (c *ForceChart) Data(snapshot *resource.Snapshot) error {
	if c.loop.isClosed() {
		return ErrClosed
	}
	c.setData(snapshot)
	c.refresh()
	return nil
}

// Kinds replaces the kind filter and re-digests.
func (c *ForceChart) Kinds(filter graph.KindFilter) error {
	if c.loop.isClosed() {
		return ErrClosed
	}
	c.kinds = filter
	c.refresh()
	return nil
}

// OnDragStart selects n and pins it where it is, remembering its position.
func (c *ForceChart) OnDragStart(n *graph.Node) error {
	if c.loop.isClosed() {
		return ErrClosed
	}
	c.ctl.Select(n.ID)
	if !n.Fixed {
		n.Floatpoint = &graph.Point{X: n.X, Y: n.Y}
	}
	n.Fixed = true
	return nil
}

// OnDrag moves n to (x, y) and wakes the simulation.
func (c *ForceChart) OnDrag(n *graph.Node, x, y float64) error {
	if c.loop.isClosed() {
		return ErrClosed
	}
	n.X, n.Y = x, y
	n.PX, n.PY = x, y
	c.sim.Resume()
	return nil
}

// OnDragEnd leaves n pinned if it moved past the drag threshold and is
// inside the viewport; otherwise it rejoins the simulation. A drag that
// started on an already pinned node always counts as a move.
func (c *ForceChart) OnDragEnd(n *graph.Node) error {
	if c.loop.isClosed() {
		return ErrClosed
	}

	moved := true
	if fp := n.Floatpoint; fp != nil {
		moved = n.X < fp.X-dragThreshold || n.X > fp.X+dragThreshold ||
			n.Y < fp.Y-dragThreshold || n.Y > fp.Y+dragThreshold
		n.Floatpoint = nil
	}
	n.Fixed = moved &&
		n.X > pinMargin && n.X < c.width-pinMargin &&
		n.Y >= pinMargin && n.Y < c.height-pinMargin

	if !n.Fixed {
		c.sim.Resume()
	}
	return nil
}

// OnDoubleClick unpins every node and restarts the simulation.
func (c *ForceChart) OnDoubleClick() error {
	if c.loop.isClosed() {
		return ErrClosed
	}
	for _, n := range c.graph.Nodes {
		n.Fixed = false
	}
	c.sim.Start()
	return nil
}

// Settle drains queued work and ticks until the simulation cools or
// maxTicks is reached. It returns the number of ticks taken.
func (c *ForceChart) Settle(maxTicks int) (int, error) {
	if c.loop.isClosed() {
		return 0, ErrClosed
	}
	c.loop.drain()

	ticks := 0
	for ticks < maxTicks && c.sim.Tick() {
		ticks++
	}
	return ticks, nil
}

// Run drives the chart until ctx is done or the chart is closed: queued
// work runs as it arrives and the simulation ticks every interval.
func (c *ForceChart) Run(ctx context.Context, interval time.Duration) error {
	if !c.loop.enter() {
		return ErrClosed
	}
	defer func() {
		c.loop.exit()
		c.loop.final()
	}()

	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		tick := false
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.loop.wake:
		case <-ticker.C():
			tick = true
		}

		if c.loop.isClosed() {
			return nil
		}
		c.loop.drain()
		if tick {
			c.sim.Tick()
		}
	}
}

// Close tears the chart down. The layout state of every displayed node is
// kept in the cache. The simulation is stopped unless it is shared and
// already drives another chart.
func (c *ForceChart) Close() error {
	return c.close(func() {
		if !c.ownsSim && !c.holdsSim() {
			c.loaded = nil
			return
		}
		c.sim.Stop()
		c.sim.SetGraph(nil, nil)
		if !c.ownsSim {
			c.sim.OnTick(nil)
		}
		c.loaded = nil
	})
}
