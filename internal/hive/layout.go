// Package hive places nodes on fixed radial axes, one per resource kind.
package hive

import (
	"fmt"
	"math"

	"kube-topology/internal/graph"
	"kube-topology/internal/resource"
)

const (
	DefaultInnerRadius = 60.0
	DefaultOuterRadius = 400.0

	// rankOffset keeps the first node of an axis off the axis origin.
	rankOffset = 0.1
	// labelGap separates an axis label from the axis tip.
	labelGap = 30.0
)

// Axis is a ray onto which all nodes of one kind are placed.
type Axis struct {
	Kind resource.Kind `mapstructure:"kind" json:"kind"`
	Name string        `mapstructure:"name" json:"name"`
	// Angle is measured in degrees.
	Angle float64 `mapstructure:"angle" json:"angle"`
	// Radius is the outer end of the axis. Zero falls back to the layout's outer radius.
	Radius float64 `mapstructure:"radius" json:"radius"`
}

// DefaultAxes returns the built-in axis set.
func DefaultAxes() []Axis {
	return []Axis{
		{Kind: resource.KindPod, Name: "Pods", Angle: 30, Radius: 420},
		{Kind: resource.KindNode, Name: "Nodes", Angle: 270, Radius: 200},
		{Kind: resource.KindService, Name: "Services", Angle: 150, Radius: 240},
		{Kind: resource.KindDeployment, Name: "Deployments", Angle: 210, Radius: 240},
		{Kind: resource.KindNamespace, Name: "Namespaces", Angle: 90, Radius: 240},
		{Kind: resource.KindOther, Name: "Other", Angle: 330, Radius: 160},
	}
}

// Config configures a Layout. Zero values take the defaults.
type Config struct {
	InnerRadius float64
	// OuterRadius bounds only the axes without a Radius of their own. Every
	// default axis sets one, so it has no effect unless Axes is given.
	OuterRadius float64
	Axes        []Axis
}

// Placement is the polar position of one node.
type Placement struct {
	Kind resource.Kind
	// Angle is measured in radians.
	Angle  float64
	Radius float64
	Rank   int
	Count  int
}

// Point converts the placement to cartesian coordinates around the origin.
func (p Placement) Point() graph.Point {
	return graph.Point{X: p.Radius * math.Cos(p.Angle), Y: p.Radius * math.Sin(p.Angle)}
}

// Layout is a deterministic radial layout. Positions depend only on node
// kinds and arrival order.
type Layout struct {
	inner      float64
	outer      float64
	axes       []Axis
	byKind     map[resource.Kind]Axis
	placements map[string]Placement
}

// New creates a layout.
func New(cfg Config) *Layout {
	if cfg.InnerRadius == 0 {
		cfg.InnerRadius = DefaultInnerRadius
	}
	if cfg.OuterRadius == 0 {
		cfg.OuterRadius = DefaultOuterRadius
	}
	if len(cfg.Axes) == 0 {
		cfg.Axes = DefaultAxes()
	}

	l := &Layout{
		inner:      cfg.InnerRadius,
		outer:      cfg.OuterRadius,
		axes:       cfg.Axes,
		byKind:     make(map[resource.Kind]Axis, len(cfg.Axes)),
		placements: make(map[string]Placement),
	}
	for _, a := range cfg.Axes {
		l.byKind[a.Kind] = a
	}
	return l
}

// Axes returns the configured axes.
func (l *Layout) Axes() []Axis {
	return l.axes
}

// AxisKind returns the axis bucket for kind k. Kinds without an axis of
// their own share the Other axis.
func (l *Layout) AxisKind(k resource.Kind) resource.Kind {
	if _, ok := l.byKind[k]; ok {
		return k
	}
	return resource.KindOther
}

func (l *Layout) axisRadius(a Axis) float64 {
	if a.Radius == 0 {
		return l.outer
	}
	return a.Radius
}

// Apply ranks the nodes of g by arrival order within their axis and sets
// every node's position.
func (l *Layout) Apply(g *graph.Graph) {
	clear(l.placements)

	counts := make(map[resource.Kind]int)
	ranks := make([]int, len(g.Nodes))
	for i, n := range g.Nodes {
		k := l.AxisKind(n.Kind())
		counts[k]++
		ranks[i] = counts[k]
	}

	for i, n := range g.Nodes {
		k := l.AxisKind(n.Kind())
		p := Placement{Kind: k, Rank: ranks[i], Count: counts[k]}
		if a, ok := l.byKind[k]; ok {
			p.Angle = radians(a.Angle)
			step := float64(p.Rank)/float64(p.Count) - rankOffset
			p.Radius = l.inner + (l.axisRadius(a)-l.inner)*step
		}
		l.placements[n.ID] = p

		pt := p.Point()
		n.X, n.Y = pt.X, pt.Y
		n.PX, n.PY = pt.X, pt.Y
		n.Placed = true
	}
}

// Placement returns the polar position of the node with the given id. An
// unknown id resolves to the origin.
func (l *Layout) Placement(id string) (Placement, bool) {
	p, ok := l.placements[id]
	return p, ok
}

// Curve is a cubic bezier link between two axis positions.
type Curve struct {
	Start    graph.Point
	Control1 graph.Point
	Control2 graph.Point
	End      graph.Point
}

// Path renders the curve as an SVG path.
func (c Curve) Path() string {
	return fmt.Sprintf("M%g,%g C%g,%g %g,%g %g,%g",
		c.Start.X, c.Start.Y,
		c.Control1.X, c.Control1.Y,
		c.Control2.X, c.Control2.Y,
		c.End.X, c.End.Y)
}

// Link computes the curve of an edge. The curve bends a third of the
// angular distance from each end and always takes the shorter arc.
func (l *Layout) Link(e *graph.Edge) Curve {
	s, _ := l.Placement(e.Source.ID)
	t, _ := l.Placement(e.Target.ID)
	return curve(s, t)
}

func curve(s, t Placement) Curve {
	if t.Angle < s.Angle {
		s, t = t, s
	}
	if t.Angle-s.Angle > math.Pi {
		s.Angle += 2 * math.Pi
	}
	a1 := s.Angle + (t.Angle-s.Angle)/3
	a2 := t.Angle - (t.Angle-s.Angle)/3

	return Curve{
		Start:    polar(s.Angle, s.Radius),
		Control1: polar(a1, s.Radius),
		Control2: polar(a2, t.Radius),
		End:      polar(t.Angle, t.Radius),
	}
}

// AxisLine returns the two ends of an axis.
func (l *Layout) AxisLine(a Axis) (from, to graph.Point) {
	rad := radians(a.Angle)
	return polar(rad, l.inner), polar(rad, l.axisRadius(a))
}

// LabelPosition returns where an axis label is drawn.
func (l *Layout) LabelPosition(a Axis) graph.Point {
	return polar(radians(a.Angle), l.axisRadius(a)+labelGap)
}

// Translation returns the offset that centers the layout in a viewport.
func Translation(width, height float64) graph.Point {
	return graph.Point{X: width/2 - 80, Y: height/2 - 20}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func polar(angle, radius float64) graph.Point {
	return graph.Point{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius}
}
