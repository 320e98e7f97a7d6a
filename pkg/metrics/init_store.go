package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowtie_store_operations_total",
			Help: "Total number of diagram store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bowtie_store_operation_duration_seconds",
			Help:    "Diagram store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"backend", "operation"},
	)

	r.StoreBytesWritten = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowtie_store_bytes_written_total",
			Help: "Bytes written to the diagram store after compression",
		},
		[]string{"backend"},
	)
}

func (r *Registry) initWorkspaceMetrics() {
	r.WorkspaceOpenDiagrams = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bowtie_workspace_open_diagrams",
			Help: "Diagrams currently held in the workspace",
		},
	)

	r.WorkspaceEditsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bowtie_workspace_edits_total",
			Help: "Diagram edits applied through the workspace",
		},
		[]string{"operation", "status"},
	)
}

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bowtie_uptime_seconds",
			Help: "Time since the server started in seconds",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bowtie_goroutines",
			Help: "Number of goroutines",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bowtie_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)
}
