// Package metrics exposes the clustering orchestrator's runtime-statistics
// document as Prometheus collectors.
package metrics

import (
	"clustercore/pkg/clustering/orchestrator"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector wraps the Prometheus collectors for one orchestrator's runs.
// Each process should create one Collector and register it against its
// own prometheus.Registerer, rather than relying on the global default.
type Collector struct {
	runsTotal      *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	chunksSorted   *prometheus.GaugeVec
	chunksRemoved  *prometheus.GaugeVec
	clustersFormed *prometheus.GaugeVec
}

// NewCollector builds a Collector and registers its metrics against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clustercore_orchestrator_runs_total",
			Help: "Total number of orchestrator runs completed, by table.",
		}, []string{"table"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clustercore_orchestrator_step_duration_seconds",
			Help:    "Wall-clock duration of each orchestrator step, by table and step name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table", "step"}),
		chunksSorted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clustercore_orchestrator_chunks_sorted",
			Help: "Number of chunks sorted in the most recent orchestrator run, by table.",
		}, []string{"table"}),
		chunksRemoved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clustercore_orchestrator_chunks_removed",
			Help: "Number of chunks removed by cleanup in the most recent orchestrator run, by table.",
		}, []string{"table"}),
		clustersFormed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clustercore_orchestrator_clusters_formed",
			Help: "Number of clusters formed in the most recent orchestrator run, by table.",
		}, []string{"table"}),
	}

	reg.MustRegister(c.runsTotal, c.stepDuration, c.chunksSorted, c.chunksRemoved, c.clustersFormed)
	return c
}

// Observe records one orchestrator.Result's counts and per-step timings.
func (c *Collector) Observe(result *orchestrator.Result) {
	c.runsTotal.WithLabelValues(result.Table).Inc()
	c.chunksSorted.WithLabelValues(result.Table).Set(float64(result.ChunksSorted))
	c.chunksRemoved.WithLabelValues(result.Table).Set(float64(result.ChunksRemoved))
	c.clustersFormed.WithLabelValues(result.Table).Set(float64(result.ClustersFormed))

	for _, step := range result.Steps {
		seconds := float64(step.DurationNS) / 1e9
		c.stepDuration.WithLabelValues(result.Table, step.Step).Observe(seconds)
	}
}
