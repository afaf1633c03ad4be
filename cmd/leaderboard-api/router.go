package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/salespulse/platform/pkg/common/config"
	"github.com/salespulse/platform/pkg/gateway/auth"
	"github.com/salespulse/platform/pkg/gateway/middleware"
	"github.com/salespulse/platform/pkg/gateway/routes"
	"github.com/salespulse/platform/pkg/ingest"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/leaderboard"
	"github.com/salespulse/platform/pkg/posts"
	"github.com/salespulse/platform/pkg/scrape"
	"github.com/salespulse/platform/pkg/targets"
)

// app holds the constructed services the router exposes.
type app struct {
	sessions     *auth.SessionManager
	targets      *targets.Service
	jobs         *jobs.Store
	orchestrator *scrape.Orchestrator
	processor    *ingest.Processor
	posts        *posts.Repository
	leaderboard  *leaderboard.Service
	readiness    map[string]routes.Pinger
}

func newRouter(cfg *config.Config, a *app) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(cfg.CORSOrigin))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	routes.NewHealthHandler("leaderboard-api", a.readiness).Register(router)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public reads.
	leaderboard.NewHTTPHandler(a.leaderboard).Register(api)
	posts.NewHTTPHandler(a.posts).Register(api)
	targetHandler := targets.NewHTTPHandler(a.targets)
	targetHandler.RegisterPublic(api)

	// The workflow authenticates with the pre-shared secret, not a session.
	ingest.NewHTTPHandler(a.processor, cfg.IngestAPISecret, cfg.MaxRequestBody).Register(api)
	routes.NewSessionHandler(a.sessions, cfg.AdminPassword).Register(api)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.RequireSession(a.sessions))
	scrape.NewHTTPHandler(a.orchestrator).Register(protected)
	jobs.NewHTTPHandler(a.jobs).Register(protected)
	targetHandler.RegisterAdmin(protected)

	return router
}
