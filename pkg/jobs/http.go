package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
)

type HTTPHandler struct {
	store *Store
}

func NewHTTPHandler(store *Store) *HTTPHandler {
	return &HTTPHandler{store: store}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/jobs/status/{jobId}", h.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/jobs", h.handleList).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["jobId"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid job id"})
		return
	}

	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Job not found"})
			return
		}
		logger.Log.WithError(err).WithField("job_id", id).Error("failed to fetch job status")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch job status"})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, StatusResponse(job))
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	jobs, err := h.store.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list scrape jobs")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list jobs"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
