package graph

// Cache holds the layout state of nodes that are not currently displayed,
// keyed by id. It is unbounded; owners reset it on teardown.
type Cache struct {
	nodes map[string]*Node
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{nodes: make(map[string]*Node)}
}

// Put stores n under its id, detaching its item so stale data is never
// handed back.
func (c *Cache) Put(n *Node) {
	n.Item = nil
	n.Floatpoint = nil
	c.nodes[n.ID] = n
}

// Take removes and returns the node cached under id.
func (c *Cache) Take(id string) (*Node, bool) {
	n, ok := c.nodes[id]
	if ok {
		delete(c.nodes, id)
	}
	return n, ok
}

// Get returns the node cached under id without removing it.
func (c *Cache) Get(id string) (*Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Len returns the number of cached nodes.
func (c *Cache) Len() int {
	return len(c.nodes)
}

// Reset drops every cached node.
func (c *Cache) Reset() {
	clear(c.nodes)
}
