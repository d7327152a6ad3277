// Package chart wires the reconciler and the layout engines to a container
// and the user's interactions.
//
// A chart's layout state is owned by a single goroutine: the one calling
// Run, or, for headless use, the one calling the handlers, Drain and Settle
// directly. Resize timers fire on other goroutines and only queue work for
// the owner.
package chart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"kube-topology/internal/graph"
	"kube-topology/internal/logger"
	"kube-topology/internal/metrics"
	"kube-topology/internal/resource"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// ErrClosed is returned by every operation on a chart after Close.
var ErrClosed = errors.New("chart closed")

// DefaultResizeDelay is the quiet period after the last resize event before
// the layout is recomputed.
const DefaultResizeDelay = 150 * time.Millisecond

// Container is the element a chart is drawn into.
type Container interface {
	Size() (width, height float64)
}

// ResizeNotifier is implemented by containers that report size changes.
// The returned function detaches fn.
type ResizeNotifier interface {
	OnResize(fn func()) (cancel func())
}

// Viewport is a headless container with a settable size.
type Viewport struct {
	mu        sync.Mutex
	width     float64
	height    float64
	next      int
	listeners map[int]func()
}

// NewViewport creates a viewport of the given size.
func NewViewport(width, height float64) *Viewport {
	return &Viewport{width: width, height: height, listeners: make(map[int]func())}
}

// Size returns the current size.
func (v *Viewport) Size() (float64, float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// Resize changes the size and notifies every listener.
func (v *Viewport) Resize(width, height float64) {
	v.mu.Lock()
	v.width, v.height = width, height
	fns := make([]func(), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnResize registers fn to be called after every Resize.
func (v *Viewport) OnResize(fn func()) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.next
	v.next++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.listeners, id)
	}
}

// Listeners returns the number of attached resize listeners.
func (v *Viewport) Listeners() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.listeners)
}

// base is the state and behaviour shared by the force and hive charts.
type base struct {
	id        string
	label     string
	container Container
	ctl       *Controller
	cache     *graph.Cache
	graph     *graph.Graph
	items     *resource.Items
	relations []resource.Relation
	kinds     graph.KindFilter
	loop      *loop
	resize    *debouncer
	detach    func()
	log       *logrus.Entry
	metrics   *metrics.Registry
}

func newBase(label string, container Container, snapshot *resource.Snapshot, onClick NodeClickFunc,
	kinds graph.KindFilter, cache *graph.Cache, log *logrus.Entry, m *metrics.Registry) (*base, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("init %s chart: %w", label, err)
	}
	if container == nil {
		return nil, fmt.Errorf("init %s chart: no container: %w", label, resource.ErrInvalidInput)
	}
	if cache == nil {
		cache = graph.NewCache()
	}

	id := uuid.NewString()
	b := &base{
		id:        id,
		label:     label,
		container: container,
		ctl:       NewController(onClick),
		cache:     cache,
		graph:     graph.Empty(),
		kinds:     kinds,
		loop:      newLoop(),
		log:       logger.OrDiscard(log).WithFields(logrus.Fields{"chart": label, "chart_id": id}),
		metrics:   m,
	}
	b.setData(snapshot)
	return b, nil
}

// watch subscribes to container resizes, coalescing them into one call of
// adjust on the owning goroutine.
func (b *base) watch(c clock.WithDelayedExecution, delay time.Duration, adjust func()) {
	if delay <= 0 {
		delay = DefaultResizeDelay
	}
	b.resize = newDebouncer(c, delay, func() {
		b.loop.post(adjust)
	})
	if rn, ok := b.container.(ResizeNotifier); ok {
		b.detach = rn.OnResize(b.Resized)
	}
}

func (b *base) setData(snapshot *resource.Snapshot) {
	b.items = resource.NewItems()
	b.relations = nil
	if snapshot == nil {
		return
	}
	if snapshot.Items != nil {
		b.items = snapshot.Items
	}
	b.relations = snapshot.Relations
}

func (b *base) digest() {
	b.graph = graph.Digest(b.graph, b.items, b.relations, b.kinds, b.cache)
	b.ctl.SetGraph(b.graph)
	b.metrics.RecordDigest(b.label, len(b.graph.Nodes), b.graph.Dropped, b.cache.Len())

	if b.graph.Dropped > 0 {
		b.log.WithField("dropped", b.graph.Dropped).Debug("dropped unresolved relations")
	}
}

// ID returns the chart instance id.
func (b *base) ID() string {
	return b.id
}

// Graph returns the most recent digest.
func (b *base) Graph() *graph.Graph {
	return b.graph
}

// Cache returns the side cache holding layout state of hidden nodes.
func (b *base) Cache() *graph.Cache {
	return b.cache
}

// Controller returns the selection and hover state.
func (b *base) Controller() *Controller {
	return b.ctl
}

// Resized schedules a layout recomputation once resize events have been
// quiet for the resize delay. It is safe to call from any goroutine.
func (b *base) Resized() {
	if b.loop.isClosed() || b.resize == nil {
		return
	}
	b.resize.trigger()
}

// Do queues fn to run on the goroutine that owns the chart.
func (b *base) Do(fn func()) error {
	if !b.loop.post(fn) {
		return ErrClosed
	}
	return nil
}

// Drain runs queued work on the calling goroutine and returns how many
// functions ran. It must not be used while Run is active.
func (b *base) Drain() int {
	return b.loop.drain()
}

// Select marks the node with the given id as the only selected node.
func (b *base) Select(id string) error {
	if b.loop.isClosed() {
		return ErrClosed
	}
	b.ctl.Select(id)
	return nil
}

// OnHoverNode highlights the neighbourhood of n.
func (b *base) OnHoverNode(n *graph.Node) error {
	if b.loop.isClosed() {
		return ErrClosed
	}
	b.ctl.HoverNode(n)
	return nil
}

// OnHoverEdge highlights e and its endpoints.
func (b *base) OnHoverEdge(e *graph.Edge) error {
	if b.loop.isClosed() {
		return ErrClosed
	}
	b.ctl.HoverEdge(e)
	return nil
}

// OnLeave clears all highlighting.
func (b *base) OnLeave() error {
	if b.loop.isClosed() {
		return ErrClosed
	}
	b.ctl.Leave()
	return nil
}

// OnClick hands n to the configured click callback.
func (b *base) OnClick(n *graph.Node) error {
	if b.loop.isClosed() {
		return ErrClosed
	}
	b.ctl.Click(n)
	return nil
}

// close detaches the resize listener, cancels a pending recomputation and
// moves every displayed node into the cache. stop runs last, on the owning
// goroutine.
func (b *base) close(stop func()) error {
	if b.loop.isClosed() {
		return ErrClosed
	}
	if b.detach != nil {
		b.detach()
		b.detach = nil
	}
	if b.resize != nil {
		b.resize.cancel()
	}

	ok := b.loop.shutdown(func() {
		b.cache.Reset()
		for _, n := range b.graph.Nodes {
			b.cache.Put(n)
		}
		b.graph = graph.Empty()
		b.ctl.SetGraph(b.graph)
		b.ctl.Select("")
		if stop != nil {
			stop()
		}
	})
	if !ok {
		return ErrClosed
	}

	b.log.WithField("cached", b.cache.Len()).Debug("chart closed")
	return nil
}
