package server

import (
	"encoding/json"
	"net/http"
	"time"
)

const recentRunLimit = 20

// JobStatus describes one registered job and its last known outcome.
type JobStatus struct {
	Schedule   string `json:"schedule"`
	Window     string `json:"window,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
	LastRun    string `json:"last_run,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// RunSummary is one journal row in API form.
type RunSummary struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	Status     string    `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime time.Duration        `json:"uptime_seconds"`
	Jobs   map[string]JobStatus `json:"jobs"`
	Recent []RunSummary         `json:"recent_runs"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime: time.Since(s.startedAt).Truncate(time.Second),
			Jobs:   make(map[string]JobStatus),
			Recent: []RunSummary{},
		}

		if s.scheduler != nil {
			for _, job := range s.scheduler.Jobs() {
				status := JobStatus{Schedule: job.Schedule()}
				if window := job.Window().String(); window != "" {
					status.Window = window
				}
				resp.Jobs[job.Name()] = status
			}
		}

		if s.store != nil {
			last, err := s.store.LastByJob(r.Context())
			if err != nil {
				s.logger.Error("status: journal read failed", "error", err)
			}
			for name, run := range last {
				status := resp.Jobs[name]
				status.LastStatus = run.Status
				status.LastRun = run.StartedAt.Format(time.RFC3339)
				status.LastError = run.Error
				resp.Jobs[name] = status
			}

			recent, err := s.store.Recent(r.Context(), recentRunLimit)
			if err != nil {
				s.logger.Error("status: recent runs read failed", "error", err)
			}
			for _, run := range recent {
				resp.Recent = append(resp.Recent, RunSummary{
					Job:        run.Job,
					StartedAt:  run.StartedAt,
					Status:     run.Status,
					DurationMS: run.Duration().Milliseconds(),
					Error:      run.Error,
				})
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
