package posts

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
)

type HTTPHandler struct {
	repo *Repository
}

func NewHTTPHandler(repo *Repository) *HTTPHandler {
	return &HTTPHandler{repo: repo}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/posts", h.handleExplore).Methods(http.MethodGet)
}

// handleExplore serves GET /posts?page=&user=&sort=date|score.
func (h *HTTPHandler) handleExplore(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := ExploreQuery{Page: 1, Sort: SortDate}
	if raw := params.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			q.Page = page
		}
	}
	if params.Get("sort") == SortScore {
		q.Sort = SortScore
	}
	if raw := params.Get("user"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
			return
		}
		q.TargetID = &id
	}

	page, err := h.repo.Explore(r.Context(), q)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list posts")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch posts"})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
