package metrics

import (
	"runtime"
	"time"
)

// RecordEngineRun records one propagation run
func (r *Registry) RecordEngineRun(duration time.Duration, nodes int) {
	r.EngineRunsTotal.Inc()
	r.EngineDuration.Observe(duration.Seconds())
	r.EngineNodesEvaluated.Observe(float64(nodes))
}

// RecordEngineAnomaly counts a tolerated structural anomaly
func (r *Registry) RecordEngineAnomaly(kind string, n int) {
	if n <= 0 {
		return
	}
	r.EngineAnomaliesTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordBand counts a band assignment
func (r *Registry) RecordBand(band string) {
	r.EngineRiskBands.WithLabelValues(band).Inc()
}

// RecordHTTPRequest records a served request under its route pattern
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordStoreOperation records a diagram store operation
func (r *Registry) RecordStoreOperation(backend, operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordStoreWrite adds to the written byte count for a backend
func (r *Registry) RecordStoreWrite(backend string, bytes int) {
	r.StoreBytesWritten.WithLabelValues(backend).Add(float64(bytes))
}

// RecordWorkspaceEdit records an edit applied to an open diagram
func (r *Registry) RecordWorkspaceEdit(operation, status string) {
	r.WorkspaceEditsTotal.WithLabelValues(operation, status).Inc()
}

// SetOpenDiagrams sets the number of diagrams held open
func (r *Registry) SetOpenDiagrams(n int) {
	r.WorkspaceOpenDiagrams.Set(float64(n))
}

// UpdateSystemMetrics samples runtime statistics
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(ms.Alloc))
}
