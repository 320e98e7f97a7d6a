package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder receives per-request measurements.
type MetricsRecorder interface {
	RecordHTTPRequest(method, route, status string, duration time.Duration)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()
}

// RouteFunc maps a request to a low-cardinality route label.
type RouteFunc func(*http.Request) string

// Metrics records request count, latency and in-flight requests. route keeps
// diagram and node ids out of the route label; nil uses the raw path.
func Metrics(recorder MetricsRecorder, route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder.IncHTTPRequestsInFlight()
			defer recorder.DecHTTPRequestsInFlight()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			label := r.URL.Path
			if route != nil {
				label = route(r)
			}
			recorder.RecordHTTPRequest(r.Method, label, strconv.Itoa(rec.statusCode), time.Since(start))
		})
	}
}
