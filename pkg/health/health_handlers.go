package health

import (
	"encoding/json"
	"net/http"
)

// ReadinessHandler answers 200 when every readiness check is healthy and 503
// otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeBinary(w, c.CheckReadiness(r.Context()))
	}
}

// LivenessHandler answers 200 when every liveness check is healthy and 503
// otherwise.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeBinary(w, c.CheckLiveness(r.Context()))
	}
}

// HTTPStatus maps an aggregate status to a response code. Degraded still
// serves traffic.
func HTTPStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeBinary(w http.ResponseWriter, response Response) {
	w.Header().Set("Content-Type", "application/json")
	if response.Status == StatusHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}
