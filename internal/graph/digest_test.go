package graph

import (
	"testing"

	"kube-topology/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, kind resource.Kind) *resource.Item {
	return &resource.Item{ID: id, Kind: kind, Metadata: resource.Metadata{UID: id, Name: id}}
}

func TestDigestNodeAndPod(t *testing.T) {
	cache := NewCache()
	items := resource.ItemsOf(item("n1", resource.KindNode), item("p1", resource.KindPod))
	rels := []resource.Relation{{Source: "p1", Target: "n1"}}

	g := Digest(nil, items, rels, nil, cache)

	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "PodNode", g.Edges[0].Kinds)
	assert.Equal(t, 0, g.Lookup["n1"])
	assert.Equal(t, 1, g.Lookup["p1"])

	p1 := g.Nodes[1]
	p1.X, p1.Y, p1.Fixed = 12.5, 40.25, true

	g = Digest(g, resource.ItemsOf(item("n1", resource.KindNode)), rels, nil, cache)

	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
	assert.Equal(t, 1, g.Dropped)

	cached, ok := cache.Get("p1")
	require.True(t, ok)
	assert.Same(t, p1, cached)
	assert.Nil(t, cached.Item)
}

func TestDigestPreservesIdentity(t *testing.T) {
	items := resource.ItemsOf(item("a", resource.KindPod), item("b", resource.KindService))
	g := Digest(nil, items, nil, nil, NewCache())

	a := g.Nodes[0]
	a.X, a.Y, a.Fixed, a.Placed = 1.0/3.0, 2.0/7.0, true, true

	fresh := item("a", resource.KindPod)
	fresh.Metadata.Name = "renamed"
	next := Digest(g, resource.ItemsOf(item("b", resource.KindService), fresh), nil, nil, NewCache())

	got, ok := next.Node("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 1.0/3.0, got.X)
	assert.Equal(t, 2.0/7.0, got.Y)
	assert.True(t, got.Fixed)
	assert.Same(t, fresh, got.Item)
	assert.Equal(t, 1, next.Lookup["a"])
}

func TestDigestCacheRoundTrip(t *testing.T) {
	cache := NewCache()
	g := Digest(nil, resource.ItemsOf(item("a", resource.KindPod), item("b", resource.KindPod)), nil, nil, cache)
	b := g.Nodes[1]
	b.X, b.Y, b.Fixed = 300, 200, true

	g = Digest(g, resource.ItemsOf(item("a", resource.KindPod)), nil, nil, cache)
	require.Equal(t, 1, cache.Len())

	g = Digest(g, resource.ItemsOf(item("a", resource.KindPod), item("b", resource.KindPod)), nil, nil, cache)

	got, ok := g.Node("b")
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, 300.0, got.X)
	assert.Equal(t, 200.0, got.Y)
	assert.True(t, got.Fixed)
	assert.NotNil(t, got.Item)
	assert.Equal(t, 0, cache.Len())
}

func TestDigestFilterMonotonicity(t *testing.T) {
	cache := NewCache()
	items := resource.ItemsOf(
		item("n1", resource.KindNode),
		item("p1", resource.KindPod),
		item("s1", resource.KindService),
	)
	rels := []resource.Relation{
		{Source: "p1", Target: "n1"},
		{Source: "s1", Target: "p1"},
		{Source: "s1", Target: "n1"},
	}

	g := Digest(nil, items, rels, nil, cache)
	require.Len(t, g.Edges, 3)
	p1 := g.Nodes[1]
	p1.X, p1.Y = 77, 88

	g = Digest(g, items, rels, FilterOf(resource.KindNode, resource.KindService), cache)
	for _, n := range g.Nodes {
		assert.NotEqual(t, resource.KindPod, n.Kind())
	}
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "ServiceNode", g.Edges[0].Kinds)

	g = Digest(g, items, rels, FilterOf(resource.KindNode, resource.KindService, resource.KindPod), cache)
	got, ok := g.Node("p1")
	require.True(t, ok)
	assert.Same(t, p1, got)
	assert.Equal(t, 77.0, got.X)
	assert.Len(t, g.Edges, 3)
}

func TestDigestDropsUnresolvedRelations(t *testing.T) {
	items := resource.ItemsOf(item("a", resource.KindPod))
	rels := []resource.Relation{
		{Source: "a", Target: "missing"},
		{Source: "ghost", Target: "a"},
	}

	var g *Graph
	assert.NotPanics(t, func() {
		g = Digest(nil, items, rels, nil, nil)
	})
	assert.Empty(t, g.Edges)
	assert.Equal(t, 2, g.Dropped)
}

func TestDigestEmptyItems(t *testing.T) {
	g := Digest(nil, resource.NewItems(), nil, nil, NewCache())
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.Empty(t, g.Lookup)
}

func TestKindFilterAbsentShowsAll(t *testing.T) {
	var f KindFilter
	assert.True(t, f.Allows(resource.KindPod))

	f = KindFilter{resource.KindPod: false, resource.KindNode: true}
	assert.False(t, f.Allows(resource.KindPod))
	assert.True(t, f.Allows(resource.KindNode))
	assert.False(t, f.Allows(resource.KindService))
}

func TestGraphIncident(t *testing.T) {
	items := resource.ItemsOf(item("a", resource.KindPod), item("b", resource.KindNode), item("c", resource.KindService))
	g := Digest(nil, items, []resource.Relation{{Source: "a", Target: "b"}, {Source: "c", Target: "a"}}, nil, nil)

	a, _ := g.Node("a")
	b, _ := g.Node("b")
	assert.Len(t, g.Incident(a), 2)
	assert.Len(t, g.Incident(b), 1)
}
