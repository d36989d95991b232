package server

import (
	"context"
	"net/http"
	"time"
)

// probeTimeout bounds each dependency probe during a readiness check.
const probeTimeout = 5 * time.Second

// Pinger probes a single dependency for the readiness endpoint.
type Pinger interface {
	// Ping returns nil if the dependency is reachable.
	Ping(ctx context.Context) error
	// Name identifies the dependency in the readiness response.
	Name() string
}

// readyCheck is a single dependency's result in the readiness response.
type readyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// readyResponse is the JSON body for GET /api/ready.
type readyResponse struct {
	Status string       `json:"status"`
	Checks []readyCheck `json:"checks,omitempty"`
}

// handleReady probes every configured dependency and reports 200 if all are
// reachable, 503 otherwise. With no pingers configured it degrades to a
// liveness check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Status: "ready"}
	status := http.StatusOK

	for _, p := range s.pingers {
		check := readyCheck{Name: p.Name(), Status: "ok"}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		if err := p.Ping(ctx); err != nil {
			check.Status = "error"
			check.Error = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
		}
		cancel()

		resp.Checks = append(resp.Checks, check)
	}

	writeJSON(w, status, resp)
}
