// Package presentation derives the visual attributes of a node from its item.
package presentation

import (
	"fmt"

	"kube-topology/internal/graph"
	"kube-topology/internal/resource"
)

// RunningPhase is the only phase that is not rendered as weak.
const RunningPhase = "Running"

var glyphs = map[resource.Kind]string{
	resource.KindPod:                   "#vertex-Pod",
	resource.KindReplicationController: "#vertex-ReplicationController",
	resource.KindNode:                  "#vertex-Node",
	resource.KindService:               "#vertex-Service",
	resource.KindReplicaSet:            "#vertex-ReplicaSet",
	resource.KindContainer:             "#vertex-Container",
	resource.KindDeployment:            "#vertex-Deployment",
	resource.KindNamespace:             "#vertex-Namespace",
}

// Glyph returns the icon reference for kind k, or "" when the kind has no icon.
func Glyph(k resource.Kind) string {
	return glyphs[k]
}

// Weak reports whether the item carries a non-running phase.
func Weak(item *resource.Item) bool {
	if item == nil || item.Status == nil {
		return false
	}
	return item.Status.Phase != "" && item.Status.Phase != RunningPhase
}

// Title returns the hover title of an item.
func Title(item *resource.Item) string {
	return item.Name()
}

// Tooltip returns the tooltip text shown for a node.
func Tooltip(n *graph.Node) string {
	return fmt.Sprintf("Node - %s\nKind - %s", Title(n.Item), n.Kind())
}

// Vertex is everything a renderer needs to draw one node.
type Vertex struct {
	Glyph string
	Weak  bool
	Title string
	// Class is the kind, used as a style class.
	Class string
}

// Describe derives the vertex attributes of n.
func Describe(n *graph.Node) Vertex {
	return Vertex{
		Glyph: Glyph(n.Kind()),
		Weak:  Weak(n.Item),
		Title: Title(n.Item),
		Class: string(n.Kind()),
	}
}
