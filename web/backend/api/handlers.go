// Package api holds the HTTP handlers of the turbo-delete server.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"turbo-delete/internal/disk"
	"turbo-delete/internal/engine"
	"turbo-delete/internal/listing"
	"turbo-delete/internal/metrics"
	"turbo-delete/internal/report"
	"turbo-delete/internal/runner"
)

// JobRunner starts and tracks deletions
type JobRunner interface {
	Submit(target string, sink report.Sink) (string, <-chan engine.Result)
	Get(id string) (runner.Job, bool)
	Jobs() []runner.Job
}

// Handlers groups the API endpoints and their dependencies
type Handlers struct {
	Runner  JobRunner
	History HistoryStore
	Logger  zerolog.Logger

	// Drives and List default to the disk and listing packages
	Drives func() ([]disk.Drive, error)
	List   func(path string) ([]listing.Entry, error)
}

// ErrorResponse represents error message
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DeleteRequest is the body of POST /delete
type DeleteRequest struct {
	Path string `json:"path"`
}

// DeleteResponse acknowledges a submitted deletion
type DeleteResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// ListResponse is the body of GET /list
type ListResponse struct {
	Path    string          `json:"path"`
	Entries []listing.Entry `json:"entries"`
}

// HealthHandler returns server health status
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	var components map[string]bool
	if hc := metrics.GetHealthChecker(); hc != nil {
		components = hc.GetHealth()
		if !hc.IsHealthy() {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}
	respondJSON(w, map[string]interface{}{
		"status":     status,
		"components": components,
	}, code)
}

// DrivesHandler lists mounted drives and refreshes the drive gauges
func (h *Handlers) DrivesHandler(w http.ResponseWriter, r *http.Request) {
	get := h.Drives
	if get == nil {
		get = disk.GetDrives
	}
	drives, err := get()
	if err != nil {
		h.Logger.Error().Err(err).Msg("list drives")
		respondError(w, "failed to list drives", http.StatusInternalServerError)
		return
	}
	metrics.UpdateDriveMetrics(drives)
	if drives == nil {
		drives = []disk.Drive{}
	}
	respondJSON(w, drives, http.StatusOK)
}

// ListHandler lists the immediate children of ?path=
func (h *Handlers) ListHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		respondError(w, "path query parameter is required", http.StatusBadRequest)
		return
	}

	list := h.List
	if list == nil {
		list = listing.ListDir
	}
	entries, err := list(path)
	switch {
	case errors.Is(err, listing.ErrPathNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		h.Logger.Warn().Err(err).Str("path", path).Msg("list directory")
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []listing.Entry{}
	}
	respondJSON(w, ListResponse{Path: path, Entries: entries}, http.StatusOK)
}

// DeleteHandler submits a deletion and answers before it completes.
// Safety checks run inside the job; a rejected target shows up as a
// rejected job.
func (h *Handlers) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		respondError(w, "path is required", http.StatusBadRequest)
		return
	}

	id, _ := h.Runner.Submit(req.Path, nil)
	h.Logger.Info().Str("job_id", id).Str("path", req.Path).Str("user", username(r)).Msg("deletion submitted")

	w.Header().Set("Location", "/api/v1/jobs/"+id)
	respondJSON(w, DeleteResponse{JobID: id, StatusURL: "/api/v1/jobs/" + id}, http.StatusAccepted)
}

// JobHandler returns one job
func (h *Handlers) JobHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.Runner.Get(id)
	if !ok {
		respondError(w, "job not found", http.StatusNotFound)
		return
	}
	respondJSON(w, job, http.StatusOK)
}

// JobsHandler returns all tracked jobs, newest first
func (h *Handlers) JobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs := h.Runner.Jobs()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	respondJSON(w, jobs, http.StatusOK)
}

// Helper functions
func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: message,
	}, status)
}
