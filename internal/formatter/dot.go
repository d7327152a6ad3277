package formatter

import (
	"fmt"
	"strconv"

	"kube-topology/internal/graph"

	"github.com/awalterschulze/gographviz"
)

const graphName = "topology"

// ToDOT writes g as a directed Graphviz graph. Positions are emitted as
// pinned pos attributes so neato and fdp keep the computed layout.
func ToDOT(g *graph.Graph) (string, error) {
	out := gographviz.NewEscape()
	if err := out.SetName(graphName); err != nil {
		return "", err
	}
	if err := out.SetDir(true); err != nil {
		return "", err
	}

	for _, n := range NewDocument(g).Nodes {
		attrs := map[string]string{
			"label": n.Name,
			"group": n.Kind,
			"pos":   position(n.X, n.Y),
		}
		if n.Fixed {
			attrs["pin"] = "true"
		}
		if n.Weak {
			attrs["style"] = "dashed"
		}
		if err := out.AddNode(graphName, n.ID, attrs); err != nil {
			return "", fmt.Errorf("failed to add node %s: %w", n.ID, err)
		}
	}

	if g != nil {
		for _, e := range g.Edges {
			if err := out.AddEdge(e.Source.ID, e.Target.ID, true, nil); err != nil {
				return "", fmt.Errorf("failed to add edge %s -> %s: %w", e.Source.ID, e.Target.ID, err)
			}
		}
	}

	return out.String(), nil
}

func position(x, y float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64) + "," + strconv.FormatFloat(y, 'f', 2, 64) + "!"
}
