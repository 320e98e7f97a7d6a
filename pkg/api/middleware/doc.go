// Package middleware provides the HTTP middleware of the bowtie API server.
//
// Files are split by concern:
//
//   - recovery.go: panic recovery
//   - logging.go: structured request logging
//   - cors.go: Cross-Origin Resource Sharing
//   - security_headers.go: response hardening headers
//   - body_limit.go: request body size limit
//   - request_id.go: request id propagation
//   - ratelimit.go: per-client token bucket
//   - metrics.go: Prometheus request metrics
//
// Every middleware has the shape func(http.Handler) http.Handler, so a chain
// reads inside out:
//
//	handler := middleware.PanicRecovery(logger)(mux)
//	handler = middleware.RequestID()(handler)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
package middleware
