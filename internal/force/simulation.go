package force

import (
	"math"
	"math/rand/v2"

	"kube-topology/internal/graph"
)

const (
	DefaultCharge       = -60.0
	DefaultLinkDistance = 100.0
	DefaultLinkStrength = 1.0
	DefaultFriction     = 0.9
	DefaultGravity      = 0.1

	// startAlpha is the energy the simulation is reheated to.
	startAlpha = 0.1
	alphaDecay = 0.99
	// alphaMin is the cooled threshold below which the simulation rests.
	alphaMin = 0.005
)

// Config holds the physical model parameters. Zero values take the defaults.
type Config struct {
	// Charge is the pairwise node charge; negative values repel.
	Charge float64
	// LinkDistance is the rest length of every edge spring.
	LinkDistance float64
	LinkStrength float64
	Friction     float64
	// Gravity pulls the centroid of the unpinned nodes towards the middle of
	// the viewport. It moves them together, so it never folds the layout.
	Gravity float64
	// ChargeDistance limits the reach of the charge force. Zero means unlimited.
	ChargeDistance float64
	// Radius is kept between unpinned nodes and the viewport edges.
	Radius float64
	// Seed makes initial placement reproducible.
	Seed uint64
}

// Simulation is an iterative force-directed layout over reconciled nodes.
// It is not safe for concurrent use.
type Simulation struct {
	cfg    Config
	nodes  []*graph.Node
	edges  []*graph.Edge
	width  float64
	height float64
	alpha  float64
	rnd    *rand.Rand
	onTick func()
	onEnd  func()
}

// New creates a simulation at rest.
func New(cfg Config) *Simulation {
	if cfg.Charge == 0 {
		cfg.Charge = DefaultCharge
	}
	if cfg.LinkDistance == 0 {
		cfg.LinkDistance = DefaultLinkDistance
	}
	if cfg.LinkStrength == 0 {
		cfg.LinkStrength = DefaultLinkStrength
	}
	if cfg.Friction == 0 {
		cfg.Friction = DefaultFriction
	}
	if cfg.Gravity == 0 {
		cfg.Gravity = DefaultGravity
	}
	return &Simulation{
		cfg: cfg,
		rnd: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Config returns the effective parameters.
func (s *Simulation) Config() Config {
	return s.cfg
}

// Size sets the viewport nodes are constrained to.
func (s *Simulation) Size(width, height float64) {
	s.width, s.height = width, height
}

// Bounds returns the current viewport.
func (s *Simulation) Bounds() (width, height float64) {
	return s.width, s.height
}

// SetRadius changes the edge margin kept by unpinned nodes.
func (s *Simulation) SetRadius(r float64) {
	s.cfg.Radius = r
}

// SetGraph replaces the nodes and edges being simulated.
func (s *Simulation) SetGraph(nodes []*graph.Node, edges []*graph.Edge) {
	s.nodes, s.edges = nodes, edges
}

// Nodes returns the simulated nodes.
func (s *Simulation) Nodes() []*graph.Node {
	return s.nodes
}

// Edges returns the simulated edges.
func (s *Simulation) Edges() []*graph.Edge {
	return s.edges
}

// OnTick registers the callback run after every tick, replacing any
// previous one.
func (s *Simulation) OnTick(fn func()) {
	s.onTick = fn
}

// OnEnd registers the callback run when the simulation comes to rest.
func (s *Simulation) OnEnd(fn func()) {
	s.onEnd = fn
}

// Alpha returns the current energy of the simulation.
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// Running reports whether the simulation has not yet cooled down.
func (s *Simulation) Running() bool {
	return s.alpha > 0
}

// Start recomputes node weights, places nodes that have no position yet
// and reheats the simulation.
func (s *Simulation) Start() {
	for _, n := range s.nodes {
		n.Weight = 0
	}
	for _, e := range s.edges {
		e.Source.Weight++
		e.Target.Weight++
	}

	var neighbors map[*graph.Node][]*graph.Node
	for _, n := range s.nodes {
		if n.Placed {
			continue
		}
		if neighbors == nil {
			neighbors = s.neighbors()
		}
		n.X, n.Y = s.position(n, neighbors[n])
		n.PX, n.PY = n.X, n.Y
		n.Placed = true
	}

	s.Resume()
}

// Resume reheats the simulation without touching node state.
func (s *Simulation) Resume() {
	s.alpha = startAlpha
}

// Stop cools the simulation immediately.
func (s *Simulation) Stop() {
	s.alpha = 0
}

// Tick advances the simulation by one step and reports whether it is
// still running afterwards.
func (s *Simulation) Tick() bool {
	if s.alpha <= 0 {
		return false
	}
	if len(s.nodes) == 0 || s.allFixed() {
		s.end()
		return false
	}

	s.alpha *= alphaDecay
	if s.alpha < alphaMin {
		s.end()
		return false
	}

	s.applyLinks()
	s.applyGravity()
	s.applyCharge()
	s.integrate()
	s.clamp()

	if s.onTick != nil {
		s.onTick()
	}
	return true
}

func (s *Simulation) end() {
	s.alpha = 0
	if s.onEnd != nil {
		s.onEnd()
	}
}

func (s *Simulation) allFixed() bool {
	for _, n := range s.nodes {
		if !n.Fixed {
			return false
		}
	}
	return true
}

func (s *Simulation) neighbors() map[*graph.Node][]*graph.Node {
	m := make(map[*graph.Node][]*graph.Node, len(s.nodes))
	for _, e := range s.edges {
		m[e.Source] = append(m[e.Source], e.Target)
		m[e.Target] = append(m[e.Target], e.Source)
	}
	return m
}

// position starts a node next to its first placed neighbour, or at a
// random point of the viewport.
func (s *Simulation) position(n *graph.Node, candidates []*graph.Node) (float64, float64) {
	for _, c := range candidates {
		if c.Placed && c != n {
			return c.X + s.jitter(), c.Y + s.jitter()
		}
	}
	return s.rnd.Float64() * s.width, s.rnd.Float64() * s.height
}

func (s *Simulation) jitter() float64 {
	return s.rnd.Float64() - 0.5
}

func (s *Simulation) applyLinks() {
	for _, e := range s.edges {
		src, tgt := e.Source, e.Target
		dx := tgt.X - src.X
		dy := tgt.Y - src.Y
		l := dx*dx + dy*dy
		if l == 0 {
			continue
		}
		l = math.Sqrt(l)
		l = s.alpha * s.cfg.LinkStrength * (l - s.cfg.LinkDistance) / l
		dx *= l
		dy *= l

		k := float64(src.Weight) / float64(tgt.Weight+src.Weight)
		tgt.X -= dx * k
		tgt.Y -= dy * k
		k = 1 - k
		src.X += dx * k
		src.Y += dy * k
	}
}

func (s *Simulation) applyGravity() {
	k := s.alpha * s.cfg.Gravity
	if k == 0 {
		return
	}

	var mx, my float64
	free := 0
	for _, n := range s.nodes {
		if n.Fixed {
			continue
		}
		mx += n.X
		my += n.Y
		free++
	}
	if free == 0 {
		return
	}
	dx := (s.width/2 - mx/float64(free)) * k
	dy := (s.height/2 - my/float64(free)) * k
	for _, n := range s.nodes {
		if n.Fixed {
			continue
		}
		n.X += dx
		n.Y += dy
	}
}

// applyCharge pushes previous positions apart, which the verlet step turns
// into velocity away from every other node. Pinned nodes are never pushed.
func (s *Simulation) applyCharge() {
	limit := math.Inf(1)
	if s.cfg.ChargeDistance > 0 {
		limit = s.cfg.ChargeDistance * s.cfg.ChargeDistance
	}

	for i, a := range s.nodes {
		if a.Fixed {
			continue
		}
		for j, b := range s.nodes {
			if i == j {
				continue
			}
			dx := b.X - a.X
			dy := b.Y - a.Y
			dn := dx*dx + dy*dy
			if dn == 0 {
				// coincident nodes cannot repel; nudge one of them
				a.X += s.jitter()
				a.Y += s.jitter()
				continue
			}
			if dn >= limit {
				continue
			}
			k := s.alpha * s.cfg.Charge / dn
			a.PX -= dx * k
			a.PY -= dy * k
		}
	}
}

func (s *Simulation) integrate() {
	friction := s.cfg.Friction
	for _, n := range s.nodes {
		if n.Fixed {
			n.X, n.Y = n.PX, n.PY
			continue
		}
		x, y := n.X, n.Y
		n.X -= (n.PX - x) * friction
		n.Y -= (n.PY - y) * friction
		n.PX, n.PY = x, y
	}
}

func (s *Simulation) clamp() {
	if s.width <= 0 || s.height <= 0 {
		return
	}
	r := s.cfg.Radius
	for _, n := range s.nodes {
		if n.Fixed {
			continue
		}
		n.X = math.Max(r, math.Min(s.width-r, n.X))
		n.Y = math.Max(r, math.Min(s.height-r, n.Y))
	}
}
