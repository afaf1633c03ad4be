package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/observability/metrics"
)

// Pinger is satisfied by *sql.DB and by the redis adapter below.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function, e.g. a redis client's Ping, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness, readiness and the counter exposition.
type HealthHandler struct {
	service string
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(service string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{service: service, checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", metrics.Handler).Methods(http.MethodGet)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": h.service})
}

func (h *HealthHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			logger.Log.WithError(err).WithField("dependency", name).Warn("readiness check failed")
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	respondJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}
