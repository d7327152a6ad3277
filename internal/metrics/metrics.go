package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the topology metrics. All record methods are safe to call
// on a nil *Registry, which records nothing.
type Registry struct {
	DigestsTotal          *prometheus.CounterVec
	RelationsDroppedTotal *prometheus.CounterVec
	Nodes                 *prometheus.GaugeVec
	CacheEntries          *prometheus.GaugeVec
	SimulationTicksTotal  prometheus.Counter
	RecomputationsTotal   *prometheus.CounterVec
	SnapshotRefreshes     *prometheus.CounterVec
	WatchClients          prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a registry with the topology metrics and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.DigestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kube_topology_digests_total",
			Help: "Total number of graph digests",
		},
		[]string{"chart"},
	)

	r.RelationsDroppedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kube_topology_relations_dropped_total",
			Help: "Relations dropped because an endpoint did not resolve",
		},
		[]string{"chart"},
	)

	r.Nodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kube_topology_nodes",
			Help: "Nodes in the most recent digest",
		},
		[]string{"chart"},
	)

	r.CacheEntries = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kube_topology_cache_entries",
			Help: "Nodes held in the side cache",
		},
		[]string{"chart"},
	)

	r.SimulationTicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "kube_topology_simulation_ticks_total",
			Help: "Total number of force simulation ticks",
		},
	)

	r.RecomputationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kube_topology_layout_recomputations_total",
			Help: "Layout recomputations triggered by init or resize",
		},
		[]string{"chart"},
	)

	r.SnapshotRefreshes = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "kube_topology_snapshot_refreshes_total",
			Help: "Snapshot refreshes by the data-source server, by result",
		},
		[]string{"result"},
	)

	r.WatchClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "kube_topology_watch_clients",
			Help: "Connected topology watch streams",
		},
	)

	return r
}

// GetPrometheusRegistry returns the underlying prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordDigest records the outcome of one digest.
func (r *Registry) RecordDigest(chart string, nodes, dropped, cached int) {
	if r == nil {
		return
	}
	r.DigestsTotal.WithLabelValues(chart).Inc()
	r.RelationsDroppedTotal.WithLabelValues(chart).Add(float64(dropped))
	r.Nodes.WithLabelValues(chart).Set(float64(nodes))
	r.CacheEntries.WithLabelValues(chart).Set(float64(cached))
}

// RecordTick counts one simulation tick.
func (r *Registry) RecordTick() {
	if r == nil {
		return
	}
	r.SimulationTicksTotal.Inc()
}

// RecordRecomputation counts one layout recomputation.
func (r *Registry) RecordRecomputation(chart string) {
	if r == nil {
		return
	}
	r.RecomputationsTotal.WithLabelValues(chart).Inc()
}

// RecordRefresh counts one snapshot refresh. result is "changed",
// "unchanged" or "error".
func (r *Registry) RecordRefresh(result string) {
	if r == nil {
		return
	}
	r.SnapshotRefreshes.WithLabelValues(result).Inc()
}

// WatchClientConnected adjusts the watch client gauge by delta.
func (r *Registry) WatchClientConnected(delta int) {
	if r == nil {
		return
	}
	r.WatchClients.Add(float64(delta))
}
