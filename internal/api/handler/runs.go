package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/tokgrabba/internal/domain"
	"github.com/iconidentify/tokgrabba/internal/repository"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunHandler exposes the in-memory run registry.
type RunHandler struct {
	runs repository.RunRepository
}

// NewRunHandler creates a new run handler.
func NewRunHandler(runs repository.RunRepository) *RunHandler {
	return &RunHandler{runs: runs}
}

// RunListResponse is the JSON response for GET /api/v1/runs.
type RunListResponse struct {
	Runs  []*domain.Run `json:"runs"`
	Count int           `json:"count"`
}

// List handles GET /api/v1/runs?status=&limit=.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	var status *domain.RunStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := domain.RunStatus(v)
		if !validStatus(s) {
			writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(v))
			return
		}
		status = &s
	}

	runs, err := h.runs.List(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*domain.Run{}
	}

	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}

// Get handles GET /api/v1/runs/{runID}.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := domain.RunID(chi.URLParam(r, "runID"))

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func validStatus(s domain.RunStatus) bool {
	switch s {
	case domain.RunStatusRunning, domain.RunStatusDelivered, domain.RunStatusRejected,
		domain.RunStatusFailed, domain.RunStatusAborted:
		return true
	}
	return false
}
