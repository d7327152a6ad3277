package hive

import (
	"fmt"
	"math"
	"testing"

	"kube-topology/internal/graph"
	"kube-topology/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func build(kinds ...resource.Kind) *graph.Graph {
	items := resource.NewItems()
	for i, k := range kinds {
		id := fmt.Sprintf("%s-%d", k, i)
		items.Set(&resource.Item{ID: id, Kind: k, Metadata: resource.Metadata{UID: id, Name: id}})
	}
	return graph.Digest(nil, items, nil, nil, nil)
}

func TestApplyRankSpacing(t *testing.T) {
	g := build(resource.KindPod, resource.KindPod, resource.KindPod, resource.KindPod)
	l := New(Config{})
	l.Apply(g)

	step := (420.0 - DefaultInnerRadius) / 4
	var prev float64
	for i, n := range g.Nodes {
		p, ok := l.Placement(n.ID)
		require.True(t, ok)
		assert.Equal(t, i+1, p.Rank)
		assert.Equal(t, 4, p.Count)
		if i > 0 {
			assert.Greater(t, p.Radius, prev)
			assert.InDelta(t, step, p.Radius-prev, epsilon)
		}
		prev = p.Radius
	}

	first, _ := l.Placement(g.Nodes[0].ID)
	assert.InDelta(t, DefaultInnerRadius+(420-DefaultInnerRadius)*(0.25-0.1), first.Radius, epsilon)
}

func TestApplyPositionsOnAxis(t *testing.T) {
	g := build(resource.KindNode)
	l := New(Config{})
	l.Apply(g)

	n := g.Nodes[0]
	r := DefaultInnerRadius + (200-DefaultInnerRadius)*0.9
	assert.InDelta(t, 0, n.X, epsilon)
	assert.InDelta(t, -r, n.Y, epsilon)
	assert.True(t, n.Placed)
}

func TestApplyRanksPerKind(t *testing.T) {
	g := build(resource.KindPod, resource.KindService, resource.KindPod)
	l := New(Config{})
	l.Apply(g)

	pod, _ := l.Placement(g.Nodes[2].ID)
	svc, _ := l.Placement(g.Nodes[1].ID)
	assert.Equal(t, 2, pod.Rank)
	assert.Equal(t, 2, pod.Count)
	assert.Equal(t, 1, svc.Rank)
	assert.Equal(t, 1, svc.Count)
}

func TestApplyBucketsUnknownKindsIntoOther(t *testing.T) {
	g := build(resource.KindReplicaSet, resource.KindContainer, resource.Kind("CronJob"))
	l := New(Config{})
	l.Apply(g)

	for _, n := range g.Nodes {
		p, ok := l.Placement(n.ID)
		require.True(t, ok)
		assert.Equal(t, resource.KindOther, p.Kind)
		assert.InDelta(t, radians(330), p.Angle, epsilon)
		assert.Equal(t, 3, p.Count)
	}
}

func TestApplyUnresolvedAxisFallsBackToOrigin(t *testing.T) {
	g := build(resource.KindNode)
	l := New(Config{Axes: []Axis{{Kind: resource.KindPod, Angle: 30, Radius: 420}}})

	assert.NotPanics(t, func() { l.Apply(g) })
	p, ok := l.Placement(g.Nodes[0].ID)
	require.True(t, ok)
	assert.Equal(t, 0.0, p.Angle)
	assert.Equal(t, 0.0, p.Radius)
	assert.Equal(t, 0.0, g.Nodes[0].X)
	assert.Equal(t, 0.0, g.Nodes[0].Y)
}

func TestApplyZeroAxisRadiusUsesOuterRadius(t *testing.T) {
	g := build(resource.KindPod)
	l := New(Config{InnerRadius: 10, OuterRadius: 110, Axes: []Axis{{Kind: resource.KindPod}}})
	l.Apply(g)

	p, _ := l.Placement(g.Nodes[0].ID)
	assert.InDelta(t, 10+100*0.9, p.Radius, epsilon)
}

func TestApplyDefaultAxesIgnoreOuterRadius(t *testing.T) {
	kinds := []resource.Kind{resource.KindPod, resource.KindNode, resource.KindService, resource.KindOther}
	small, large := build(kinds...), build(kinds...)

	ls := New(Config{OuterRadius: 100})
	ls.Apply(small)
	ll := New(Config{OuterRadius: 1000})
	ll.Apply(large)

	for i, n := range small.Nodes {
		ps, ok := ls.Placement(n.ID)
		require.True(t, ok)
		pl, ok := ll.Placement(large.Nodes[i].ID)
		require.True(t, ok)
		assert.Equal(t, ps, pl, n.ID)
	}
}

func TestCurveTakesShorterArc(t *testing.T) {
	s := Placement{Angle: radians(30), Radius: 100}
	tg := Placement{Angle: radians(270), Radius: 50}

	c := curve(s, tg)

	// 30 is lifted to 390, so the curve sweeps 390 -> 270 through 0.
	assert.InDelta(t, 100*math.Cos(radians(390)), c.Start.X, epsilon)
	assert.InDelta(t, 100*math.Cos(radians(350)), c.Control1.X, epsilon)
	assert.InDelta(t, 100*math.Sin(radians(350)), c.Control1.Y, epsilon)
	assert.InDelta(t, 50*math.Cos(radians(310)), c.Control2.X, epsilon)
	assert.InDelta(t, 50*math.Sin(radians(310)), c.Control2.Y, epsilon)
	assert.InDelta(t, 50*math.Sin(radians(270)), c.End.Y, epsilon)
}

func TestCurveIsSymmetric(t *testing.T) {
	a := Placement{Angle: radians(90), Radius: 80}
	b := Placement{Angle: radians(150), Radius: 120}
	assert.Equal(t, curve(a, b), curve(b, a))
}

func TestLinkPath(t *testing.T) {
	items := resource.ItemsOf(
		&resource.Item{ID: "p", Kind: resource.KindPod},
		&resource.Item{ID: "s", Kind: resource.KindService},
	)
	g := graph.Digest(nil, items, []resource.Relation{{Source: "s", Target: "p"}}, nil, nil)
	l := New(Config{})
	l.Apply(g)

	require.Len(t, g.Edges, 1)
	c := l.Link(g.Edges[0])
	path := c.Path()
	assert.Regexp(t, `^M[-0-9.e]+,[-0-9.e]+ C[-0-9.e]+,[-0-9.e]+ [-0-9.e]+,[-0-9.e]+ [-0-9.e]+,[-0-9.e]+$`, path)

	p, _ := l.Placement("p")
	assert.InDelta(t, p.Point().X, c.Start.X, epsilon)
}

func TestAxisGeometry(t *testing.T) {
	l := New(Config{})
	from, to := l.AxisLine(Axis{Angle: 0, Radius: 240})
	assert.InDelta(t, DefaultInnerRadius, from.X, epsilon)
	assert.InDelta(t, 240, to.X, epsilon)

	label := l.LabelPosition(Axis{Angle: 90, Radius: 240})
	assert.InDelta(t, 270, label.Y, epsilon)
}

func TestTranslation(t *testing.T) {
	assert.Equal(t, graph.Point{X: 320, Y: 280}, Translation(800, 600))
}
