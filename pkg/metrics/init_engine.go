package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.EngineRunsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "bowtie_engine_runs_total",
			Help: "Total number of risk propagation runs",
		},
	)

	r.EngineDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bowtie_engine_duration_seconds",
			Help:    "Risk propagation duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)

	r.EngineNodesEvaluated = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bowtie_engine_nodes_evaluated",
			Help:    "Number of nodes evaluated per run",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 1000},
		},
	)

	r.EngineAnomaliesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowtie_engine_anomalies_total",
			Help: "Structural anomalies tolerated during propagation",
		},
		[]string{"type"}, // missing_top_event, ambiguous_top_event, dangling_edge
	)

	r.EngineRiskBands = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowtie_engine_bands_total",
			Help: "Band assignments produced by propagation runs",
		},
		[]string{"band"},
	)
}
