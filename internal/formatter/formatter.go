package formatter

import (
	"errors"
	"fmt"

	"kube-topology/internal/graph"
	"kube-topology/internal/presentation"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatDOT    Format = "dot"
	FormatCypher Format = "cypher"
)

// ErrUnknownFormat is returned by Render for formats it cannot produce.
var ErrUnknownFormat = errors.New("unknown output format")

// Document is the renderer-neutral view of a laid-out graph.
type Document struct {
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
}

// NodeView is one positioned node.
type NodeView struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Fixed bool    `json:"fixed"`
	Weak  bool    `json:"weak"`
	Glyph string  `json:"glyph,omitempty"`
}

// EdgeView is one edge between node ids.
type EdgeView struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kinds  string `json:"kinds"`
}

// NewDocument snapshots the nodes and edges of g in digest order.
func NewDocument(g *graph.Graph) *Document {
	doc := &Document{Nodes: []NodeView{}, Edges: []EdgeView{}}
	if g == nil {
		return doc
	}

	for _, n := range g.Nodes {
		v := presentation.Describe(n)
		doc.Nodes = append(doc.Nodes, NodeView{
			ID:    n.ID,
			Kind:  v.Class,
			Name:  v.Title,
			X:     n.X,
			Y:     n.Y,
			Fixed: n.Fixed,
			Weak:  v.Weak,
			Glyph: v.Glyph,
		})
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, EdgeView{
			Source: e.Source.ID,
			Target: e.Target.ID,
			Kinds:  e.Kinds,
		})
	}
	return doc
}

// Render encodes g in the requested format.
func Render(g *graph.Graph, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return ToJSON(g)
	case FormatDOT:
		return ToDOT(g)
	case FormatCypher:
		return ToCypher(g), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
