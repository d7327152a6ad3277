package graph

import "kube-topology/internal/resource"

// Digest reconciles items and relations against the previously digested
// graph. Nodes whose id survives keep their identity (and with it position
// and pin state); nodes that reappear are taken back out of cache; nodes
// that disappear are moved into cache. Relations with an unresolved
// endpoint are dropped and counted.
func Digest(prev *Graph, items *resource.Items, relations []resource.Relation, filter KindFilter, cache *Cache) *Graph {
	if prev == nil {
		prev = Empty()
	}
	if cache == nil {
		cache = NewCache()
	}

	g := &Graph{
		Nodes:  make([]*Node, 0, items.Len()),
		Edges:  make([]*Edge, 0, len(relations)),
		Lookup: make(map[string]int, items.Len()),
	}

	for id, item := range items.All() {
		if !filter.Allows(item.Kind) {
			continue
		}

		node, ok := prev.Node(id)
		if !ok {
			node, ok = cache.Take(id)
		}
		if !ok {
			node = &Node{}
		}

		node.ID = id
		node.Item = item

		g.Lookup[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, node)
	}

	for _, n := range prev.Nodes {
		if _, kept := g.Lookup[n.ID]; !kept {
			cache.Put(n)
		}
	}

	for _, rel := range relations {
		s, okS := g.Lookup[rel.Source]
		t, okT := g.Lookup[rel.Target]
		if !okS || !okT {
			g.Dropped++
			continue
		}

		source, target := g.Nodes[s], g.Nodes[t]
		g.Edges = append(g.Edges, &Edge{
			Source: source,
			Target: target,
			Kinds:  string(source.Item.Kind) + string(target.Item.Kind),
		})
	}

	return g
}
