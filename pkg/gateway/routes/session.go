package routes

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/gateway/auth"
)

const adminSubject = "admin"

// SessionHandler exchanges the shared admin password for a bearer token.
type SessionHandler struct {
	sessions *auth.SessionManager
	password string
}

func NewSessionHandler(sessions *auth.SessionManager, password string) *SessionHandler {
	return &SessionHandler{sessions: sessions, password: password}
}

func (h *SessionHandler) Register(r *mux.Router) {
	r.HandleFunc("/admin/session", h.handleLogin).Methods(http.MethodPost)
}

func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Password is required"})
		return
	}

	if !auth.PasswordMatches(req.Password, h.password) {
		logger.Log.WithField("remote", r.RemoteAddr).Warn("admin login rejected")
		respondJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	token, expiresAt, err := h.sessions.IssueToken(adminSubject, auth.RoleAdmin)
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing session token")
		respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	respondJSON(w, http.StatusOK, models.SessionResponse{Token: token, ExpiresAt: expiresAt})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
