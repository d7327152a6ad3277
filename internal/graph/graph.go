package graph

import "kube-topology/internal/resource"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node wraps one item with the layout state that must survive re-digests.
type Node struct {
	ID   string
	Item *resource.Item

	// X and Y are owned by the layout engine and the interaction handlers.
	X, Y float64
	// PX and PY hold the previous position used for verlet integration.
	PX, PY float64
	// Placed is false until a layout has assigned a position.
	Placed bool
	// Fixed pins the node; the simulation will not move it.
	Fixed bool
	// Floatpoint is the pre-drag position, set only while a drag is in progress.
	Floatpoint *Point
	// Weight is the node degree, recomputed whenever the simulation restarts.
	Weight int
}

// Kind returns the node's item kind, or empty once the item has been detached.
func (n *Node) Kind() resource.Kind {
	if n.Item == nil {
		return ""
	}
	return n.Item.Kind
}

// Edge connects two nodes of the same digest.
type Edge struct {
	Source *Node
	Target *Node
	// Kinds is the concatenation of the endpoint kinds, e.g. "PodNode".
	Kinds string
}

// Graph is the result of one digest.
type Graph struct {
	Nodes  []*Node
	Edges  []*Edge
	Lookup map[string]int
	// Dropped counts relations whose endpoints did not resolve.
	Dropped int
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return &Graph{Lookup: make(map[string]int)}
}

// Node returns the node registered under id.
func (g *Graph) Node(id string) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	idx, ok := g.Lookup[id]
	if !ok {
		return nil, false
	}
	return g.Nodes[idx], true
}

// Incident returns the edges touching n.
func (g *Graph) Incident(n *Node) []*Edge {
	var edges []*Edge
	for _, e := range g.Edges {
		if e.Source == n || e.Target == n {
			edges = append(edges, e)
		}
	}
	return edges
}

// KindFilter maps a kind to its visibility. A nil filter shows everything.
type KindFilter map[resource.Kind]bool

// Allows reports whether nodes of kind k belong in the digested graph.
func (f KindFilter) Allows(k resource.Kind) bool {
	if f == nil {
		return true
	}
	return f[k]
}

// FilterOf builds a filter that shows exactly the given kinds.
func FilterOf(kinds ...resource.Kind) KindFilter {
	f := make(KindFilter, len(kinds))
	for _, k := range kinds {
		f[k] = true
	}
	return f
}
