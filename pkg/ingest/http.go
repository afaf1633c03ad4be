package ingest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/common/validation"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/observability/metrics"
)

type HTTPHandler struct {
	processor *Processor
	validator *Validator
	secret    string
	maxBody   int64
}

func NewHTTPHandler(processor *Processor, secret string, maxBody int64) *HTTPHandler {
	return &HTTPHandler{processor: processor, validator: NewValidator(), secret: secret, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/webhooks/ingest", h.handleIngest).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	// The secret is checked before the body is read.
	if !SecretMatches(r.Header.Get(SecretHeader), h.secret) {
		metrics.BatchRejected()
		logger.Log.WithField("remote_addr", r.RemoteAddr).Warn("ingest rejected: bad api secret")
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	batch, err := h.validator.Parse(r.Body)
	if err != nil {
		metrics.BatchRejected()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Log.WithField("limit", tooLarge.Limit).Warn("ingest payload rejected: too large")
			writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "Payload too large"})
			return
		}
		var ve *validation.Error
		if errors.As(err, &ve) {
			logger.Log.WithField("fields", ve.Fields).Warn("ingest payload rejected")
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: ve.Message, Details: ve.Fields})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid payload"})
		return
	}

	summary, err := h.processor.Ingest(r.Context(), batch)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			metrics.BatchRejected()
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Job not found"})
		case errors.Is(err, ErrInvalidJobState):
			metrics.BatchRejected()
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Job is not in a valid state for ingestion"})
		default:
			logger.Log.WithError(err).WithField("job_id", batch.JobID).Error("ingest failed")
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, models.IngestResponse{
		Success: true,
		Summary: models.IngestSummary{
			ProcessedUsers: summary.ProcessedTargets,
			NewPosts:       summary.NewPosts,
			UpdatedPosts:   summary.UpdatedPosts,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
