package targets

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/common/validation"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterAdmin mounts the CRUD routes. Callers wrap router with session auth.
func (h *HTTPHandler) RegisterAdmin(router *mux.Router) {
	router.HandleFunc("/admin/targets", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/admin/targets", h.handleCreate).Methods(http.MethodPost)
	router.HandleFunc("/admin/targets", h.handleUpdate).Methods(http.MethodPut)
	router.HandleFunc("/admin/targets", h.handleDelete).Methods(http.MethodDelete)
}

func (h *HTTPHandler) RegisterPublic(router *mux.Router) {
	router.HandleFunc("/teams", h.handleTeams).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	targets, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list targets")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch targets"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"targets": targets})
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}

	target, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to create target")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"target": target})
}

func (h *HTTPHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Target ID is required"})
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid target id"})
		return
	}

	target, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "Failed to update target")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"target": target})
}

func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Target ID is required"})
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid target id"})
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, "Failed to delete target")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *HTTPHandler) handleTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Catalog())
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: ve.Message, Details: ve.Fields})
	case errors.Is(err, ErrDuplicateURL):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "A target with this LinkedIn URL already exists"})
	case errors.Is(err, ErrTargetNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Target not found"})
	default:
		logger.Log.WithError(err).Error(fallback)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
