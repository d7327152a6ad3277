package chart

import "kube-topology/internal/graph"

// NodeClickFunc receives the node a user clicked.
type NodeClickFunc func(n *graph.Node)

// Controller holds the selection and hover state shared by both chart
// types. Selection is tracked by id so it survives re-digests.
type Controller struct {
	graph       *graph.Graph
	selected    string
	activeNodes map[*graph.Node]bool
	activeEdges map[*graph.Edge]bool
	onClick     NodeClickFunc
}

// NewController creates a controller that forwards clicks to onClick.
func NewController(onClick NodeClickFunc) *Controller {
	return &Controller{
		graph:       graph.Empty(),
		activeNodes: make(map[*graph.Node]bool),
		activeEdges: make(map[*graph.Edge]bool),
		onClick:     onClick,
	}
}

// SetGraph points the controller at a freshly digested graph. Hover state
// refers to the old edges and is cleared.
func (c *Controller) SetGraph(g *graph.Graph) {
	c.graph = g
	c.Leave()
}

// Select makes the node with the given id the only selected one. An empty
// id clears the selection.
func (c *Controller) Select(id string) {
	c.selected = id
}

// Selected returns the selected node if it is part of the current graph.
func (c *Controller) Selected() (*graph.Node, bool) {
	if c.selected == "" {
		return nil, false
	}
	return c.graph.Node(c.selected)
}

// IsSelected reports whether n is the current selection.
func (c *Controller) IsSelected(n *graph.Node) bool {
	return c.selected != "" && n.ID == c.selected
}

// HoverNode highlights n, its incident edges and their other endpoints.
func (c *Controller) HoverNode(n *graph.Node) {
	c.Leave()
	c.activeNodes[n] = true
	for _, e := range c.graph.Incident(n) {
		c.activeEdges[e] = true
		c.activeNodes[e.Source] = true
		c.activeNodes[e.Target] = true
	}
}

// HoverEdge highlights e and both endpoints.
func (c *Controller) HoverEdge(e *graph.Edge) {
	c.Leave()
	c.activeEdges[e] = true
	c.activeNodes[e.Source] = true
	c.activeNodes[e.Target] = true
}

// Leave clears all highlighting.
func (c *Controller) Leave() {
	clear(c.activeNodes)
	clear(c.activeEdges)
}

// NodeActive reports whether n is highlighted.
func (c *Controller) NodeActive(n *graph.Node) bool {
	return c.activeNodes[n]
}

// EdgeActive reports whether e is highlighted.
func (c *Controller) EdgeActive(e *graph.Edge) bool {
	return c.activeEdges[e]
}

// Click dispatches n to the click callback. It does not touch layout state.
func (c *Controller) Click(n *graph.Node) {
	if c.onClick != nil {
		c.onClick(n)
	}
}
