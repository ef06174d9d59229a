// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/Shuttleicious/internal/api"
	sessionsapi "github.com/codr1/Shuttleicious/internal/api/sessions"
	"github.com/codr1/Shuttleicious/internal/config"
	"github.com/codr1/Shuttleicious/internal/ratelimit"
	"github.com/codr1/Shuttleicious/internal/roster"
	"github.com/codr1/Shuttleicious/internal/sessions"
)

func newServer(cfg *config.Config, sessionService *sessions.Service, rosterProvider *roster.Provider, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	sessionsapi.InitHandlers(sessionService, rosterProvider, cfg.DefaultPolicy(), cfg.Pairing.MaxMinGames)
	registerRoutes(router, limiter)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// newGenerateLimiter returns nil when generate throttling is disabled.
func newGenerateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(&ratelimit.Config{
		Cooldown:   cfg.RateLimit.GenerateCooldown,
		MaxPerHour: cfg.RateLimit.GenerateMaxPerHour,
		TrustProxy: cfg.RateLimit.TrustProxy,
	})
}

func registerRoutes(mux *http.ServeMux, limiter *ratelimit.Limiter) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if limiter != nil {
		sessionsapi.RegisterRoutes(mux, limiter.Middleware)
		return
	}
	sessionsapi.RegisterRoutes(mux)
}
