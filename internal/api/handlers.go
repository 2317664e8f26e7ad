package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/chartmate/internal/pipeline"
	"github.com/dgallion1/chartmate/internal/status"
)

type submitRequest struct {
	JobID string   `json:"job_id"`
	Links []string `json:"links"`
}

// handleSubmit accepts a set of document links for processing. With a job_id
// it resumes that job, forwarding only links its manifest has not seen.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Links) == 0 {
		jsonError(w, "links is required", http.StatusBadRequest)
		return
	}

	res, err := s.intake.Submit(r.Context(), req.JobID, req.Links)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnknownJob) {
			jsonError(w, "job not found", http.StatusNotFound)
			return
		}
		s.log.Error("submit failed", "error", err)
		jsonError(w, "submission failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if res.UpToDate {
		json.NewEncoder(w).Encode(map[string]any{
			"job_id":  res.JobID,
			"message": "Everything is up to date.",
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    res.JobID,
		"status":    status.InProgress,
		"forwarded": res.Forwarded,
		"poll_url":  fmt.Sprintf("/api/jobs/%s", res.JobID),
	})
}

// handleResult reports job progress, and for completed jobs returns the
// composite record with its completeness percentage.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	state, err := s.statuses.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			jsonError(w, "job not found", http.StatusNotFound)
			return
		}
		s.log.Error("status lookup failed", "job_id", jobID, "error", err)
		jsonError(w, "status lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case state == status.InProgress:
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": jobID,
			"status": state,
		})
	case status.IsFailed(state):
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": jobID,
			"status": state,
		})
	default:
		s.writeCompleted(w, r, jobID, state)
	}
}

func (s *Server) writeCompleted(w http.ResponseWriter, r *http.Request, jobID, state string) {
	data, err := s.blobs.Get(r.Context(), pipeline.CompositeRecordKey(jobID))
	if err != nil {
		s.log.Error("composite record missing for completed job", "job_id", jobID, "error", err)
		jsonError(w, "result unavailable", http.StatusInternalServerError)
		return
	}
	var rec pipeline.CompositeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Error("composite record corrupt", "job_id", jobID, "error", err)
		jsonError(w, "result unavailable", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"job_id":           jobID,
		"status":           state,
		"responses":        rec.Responses,
		"completeness_pct": pipeline.Completeness(rec),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
