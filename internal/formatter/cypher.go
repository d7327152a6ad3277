package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"kube-topology/internal/graph"
)

// ToCypher converts a graph object to a series of idempotent Cypher MERGE statements.
func ToCypher(g *graph.Graph) string {
	var sb strings.Builder
	doc := NewDocument(g)

	for _, n := range doc.Nodes {
		sb.WriteString(fmt.Sprintf("MERGE (n:Resource {id: %s})\n", quote(n.ID)))
		sb.WriteString(fmt.Sprintf("SET n.kind = %s, n.name = %s, n.x = %s, n.y = %s, n.fixed = %t, n.weak = %t;\n",
			quote(n.Kind), quote(n.Name), number(n.X), number(n.Y), n.Fixed, n.Weak))
	}

	sb.WriteString("\n")

	for _, e := range doc.Edges {
		sb.WriteString(fmt.Sprintf(
			"MATCH (from:Resource {id: %s}), (to:Resource {id: %s})\nMERGE (from)-[r:RELATES]->(to)\nSET r.kinds = %s;\n",
			quote(e.Source),
			quote(e.Target),
			quote(e.Kinds),
		))
	}

	return sb.String()
}

// ToCypherTransaction converts a graph to a parameterized Cypher query that
// upserts every node with its position and every edge with its kinds.
func ToCypherTransaction(g *graph.Graph) (string, map[string]any) {
	var query bytes.Buffer
	params := make(map[string]any)
	doc := NewDocument(g)

	nodesData := make([]map[string]any, len(doc.Nodes))
	for i, n := range doc.Nodes {
		nodesData[i] = map[string]any{
			"id":    n.ID,
			"kind":  n.Kind,
			"name":  n.Name,
			"x":     n.X,
			"y":     n.Y,
			"fixed": n.Fixed,
			"weak":  n.Weak,
		}
	}
	params["nodes"] = nodesData

	query.WriteString("UNWIND $nodes AS node_data\n")
	query.WriteString("MERGE (n:Resource {id: node_data.id})\n")
	query.WriteString("SET n.kind = node_data.kind, n.name = node_data.name, n.x = node_data.x, n.y = node_data.y, n.fixed = node_data.fixed, n.weak = node_data.weak\n")

	if len(doc.Edges) > 0 {
		edgesData := make([]map[string]string, len(doc.Edges))
		for i, e := range doc.Edges {
			edgesData[i] = map[string]string{
				"from":  e.Source,
				"to":    e.Target,
				"kinds": e.Kinds,
			}
		}
		params["edges"] = edgesData

		query.WriteString("WITH *\n")
		query.WriteString("UNWIND $edges AS edge_data\n")
		query.WriteString("MATCH (from:Resource {id: edge_data.from})\n")
		query.WriteString("MATCH (to:Resource {id: edge_data.to})\n")
		query.WriteString("MERGE (from)-[r:RELATES]->(to)\n")
		query.WriteString("SET r.kinds = edge_data.kinds\n")
	}

	return query.String(), params
}

func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
