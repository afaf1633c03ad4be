package scrape

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
)

type HTTPHandler struct {
	orchestrator *Orchestrator
}

func NewHTTPHandler(orchestrator *Orchestrator) *HTTPHandler {
	return &HTTPHandler{orchestrator: orchestrator}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/jobs/trigger", h.handleTrigger).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	jobID, err := h.orchestrator.TriggerScrape(r.Context())
	if err != nil {
		var failed *TriggerFailedError
		switch {
		case errors.Is(err, ErrNoEligibleTargets):
			writeJSON(w, http.StatusBadRequest, models.TriggerResponse{Error: "No active targets to scrape"})
		case errors.As(err, &failed):
			writeJSON(w, http.StatusBadGateway, models.TriggerResponse{
				Error: "Failed to trigger scrape workflow",
				JobID: failed.JobID.String(),
			})
		default:
			logger.Log.WithError(err).Error("failed to trigger scrape")
			writeJSON(w, http.StatusInternalServerError, models.TriggerResponse{Error: "Failed to create scrape job"})
		}
		return
	}
	writeJSON(w, http.StatusOK, models.TriggerResponse{Success: true, JobID: jobID.String()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
