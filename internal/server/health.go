package server

import (
	"encoding/json"
	"net/http"

	"github.com/jsridhar/keepr/internal/history"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Jobs   map[string]string `json:"jobs,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health. The daemon is
// degraded when any job's most recent run failed; a degraded report answers
// 503 so probes and uptime monitors notice without parsing the body.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if s.store != nil {
			last, err := s.store.LastByJob(r.Context())
			if err != nil {
				s.logger.Error("health: journal read failed", "error", err)
				resp.Status = "degraded"
			} else {
				resp.Jobs = make(map[string]string, len(last))
				for job, run := range last {
					resp.Jobs[job] = run.Status
					if run.Status == history.StatusFailed {
						resp.Status = "degraded"
					}
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
