package parser

import (
	"fmt"
	"strconv"
	"strings"

	"kube-topology/internal/resource"

	"github.com/awalterschulze/gographviz"
)

// Node attributes carrying item fields. DOT only accepts Graphviz attribute
// names, so the kind travels in group.
const (
	attrKind = "group"
	attrName = "label"
)

// ParseDOT parses a Graphviz document into a snapshot.
func ParseDOT(data []byte) (*resource.Snapshot, error) {
	g, err := gographviz.Read(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dot graph: %w", err)
	}
	return ParseGraph(g)
}

// ParseGraph turns an analysed DOT graph into a snapshot. Every node becomes
// an item keyed by its node id and every edge a relation.
func ParseGraph(g *gographviz.Graph) (*resource.Snapshot, error) {
	if g == nil {
		return nil, fmt.Errorf("nil dot graph: %w", resource.ErrInvalidInput)
	}

	snap := (&resource.Snapshot{}).Normalize()

	for _, n := range g.Nodes.Nodes {
		id := unquote(n.Name)
		kind := resource.KindOther
		if v, ok := n.Attrs[attrKind]; ok {
			kind = resource.Kind(unquote(v)).Normalize()
		}
		name := id
		if v, ok := n.Attrs[attrName]; ok && unquote(v) != "" {
			name = unquote(v)
		}

		snap.Items.Set(&resource.Item{
			ID:       id,
			Kind:     kind,
			Metadata: resource.Metadata{UID: id, Name: name},
		})
	}

	for _, e := range g.Edges.Edges {
		snap.Relations = append(snap.Relations, resource.Relation{
			Source: unquote(e.Src),
			Target: unquote(e.Dst),
		})
	}

	return snap, nil
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		if v, err := strconv.Unquote(s); err == nil {
			return v
		}
		return s[1 : len(s)-1]
	}
	return s
}
