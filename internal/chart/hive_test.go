package chart

import (
	"testing"
	"time"

	"kube-topology/internal/graph"
	"kube-topology/internal/metrics"
	"kube-topology/internal/resource"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestInitHiveChartRejectsNilSnapshot(t *testing.T) {
	_, err := InitHiveChart(NewViewport(100, 100), nil, HiveConfig{})
	assert.ErrorIs(t, err, resource.ErrInvalidInput)
}

func TestHiveChartLayout(t *testing.T) {
	c, err := InitHiveChart(NewViewport(800, 600), nodeAndPod(), HiveConfig{
		Clock: testingclock.NewFakeClock(time.Unix(0, 0)),
	})
	require.NoError(t, err)

	assert.Equal(t, graph.Point{X: 320, Y: 280}, c.Translation())
	require.Len(t, c.Graph().Edges, 1)

	for _, n := range c.Graph().Nodes {
		assert.True(t, n.Placed)
		_, ok := c.Layout().Placement(n.ID)
		assert.True(t, ok)
	}

	curve := c.Link(c.Graph().Edges[0])
	assert.NotEmpty(t, curve.Path())
}

func TestHiveChartFixedSize(t *testing.T) {
	c, err := InitHiveChart(NewViewport(800, 600), nodeAndPod(), HiveConfig{
		Width: 1000,
		Clock: testingclock.NewFakeClock(time.Unix(0, 0)),
	})
	require.NoError(t, err)

	w, h := c.Size()
	assert.Equal(t, 1000.0, w)
	assert.Equal(t, 600.0, h)
}

func TestHiveChartResizeOnlyTranslates(t *testing.T) {
	vp := NewViewport(800, 600)
	clk := testingclock.NewFakeClock(time.Unix(0, 0))
	reg := metrics.NewRegistry()
	c, err := InitHiveChart(vp, nodeAndPod(), HiveConfig{Clock: clk, Metrics: reg})
	require.NoError(t, err)

	p1, _ := c.Graph().Node("p1")
	x, y := p1.X, p1.Y

	vp.Resize(400, 400)
	vp.Resize(1200, 900)
	clk.Step(DefaultResizeDelay)
	assert.Equal(t, 1, c.Drain())

	assert.Equal(t, graph.Point{X: 520, Y: 430}, c.Translation())
	assert.Equal(t, x, p1.X)
	assert.Equal(t, y, p1.Y)
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.RecomputationsTotal.WithLabelValues("hive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DigestsTotal.WithLabelValues("hive")))
}

func TestHiveChartHover(t *testing.T) {
	c, err := InitHiveChart(NewViewport(800, 600), nodeAndPod(), HiveConfig{
		Clock: testingclock.NewFakeClock(time.Unix(0, 0)),
	})
	require.NoError(t, err)

	p1, _ := c.Graph().Node("p1")
	n1, _ := c.Graph().Node("n1")

	require.NoError(t, c.OnHoverNode(p1))
	assert.Equal(t, "Node - p1\nKind - Pod", c.Tooltip())
	assert.True(t, c.Controller().NodeActive(n1))
	assert.True(t, c.Controller().EdgeActive(c.Graph().Edges[0]))

	require.NoError(t, c.OnLeave())
	assert.Empty(t, c.Tooltip())
	assert.False(t, c.Controller().NodeActive(n1))
}

func TestHiveChartDataAndKinds(t *testing.T) {
	c, err := InitHiveChart(NewViewport(800, 600), nodeAndPod(), HiveConfig{
		Clock: testingclock.NewFakeClock(time.Unix(0, 0)),
	})
	require.NoError(t, err)

	require.NoError(t, c.Kinds(graph.FilterOf(resource.KindPod)))
	require.Len(t, c.Graph().Nodes, 1)
	assert.Empty(t, c.Graph().Edges)

	require.NoError(t, c.Data(&resource.Snapshot{
		Items: resource.ItemsOf(item("p1", resource.KindPod), item("p2", resource.KindPod)),
	}))
	require.Len(t, c.Graph().Nodes, 2)
	first, _ := c.Layout().Placement("p1")
	second, _ := c.Layout().Placement("p2")
	assert.Less(t, first.Radius, second.Radius)
}

func TestHiveChartClose(t *testing.T) {
	vp := NewViewport(800, 600)
	c, err := InitHiveChart(vp, nodeAndPod(), HiveConfig{
		Clock: testingclock.NewFakeClock(time.Unix(0, 0)),
	})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, vp.Listeners())
	assert.Equal(t, 2, c.Cache().Len())
	assert.ErrorIs(t, c.Close(), ErrClosed)
	assert.ErrorIs(t, c.Kinds(nil), ErrClosed)
}
