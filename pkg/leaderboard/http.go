package leaderboard

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/leaderboard", h.handleLeaderboard).Methods(http.MethodGet)
	router.HandleFunc("/leaderboard/{targetId}/posts", h.handleTargetPosts).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/kpis", h.handleKPIs).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Leaderboard(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to build leaderboard")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch leaderboard"})
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *HTTPHandler) handleTargetPosts(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["targetId"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid target id"})
		return
	}
	list, err := h.service.TargetPosts(r.Context(), id)
	if err != nil {
		logger.Log.WithError(err).WithField("target_id", id).Error("failed to list target posts")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch posts"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": list})
}

func (h *HTTPHandler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.service.KPIs(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to compute dashboard kpis")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch dashboard"})
		return
	}
	writeJSON(w, http.StatusOK, kpis)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
