// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/middleware"
	"github.com/tomtom215/chronicle/internal/relational"
	"github.com/tomtom215/chronicle/internal/search"
)

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// HealthFunc adapts a function to HealthChecker.
type HealthFunc func(ctx context.Context) error

// Healthy calls f.
func (f HealthFunc) Healthy(ctx context.Context) error { return f(ctx) }

// IgnoreList is the mutable capture exclusion list.
type IgnoreList interface {
	List() []string
	Add(channel string) (bool, error)
	Remove(channel string) (bool, error)
}

// RelationalStore is the part of the relational projection the API reads.
type RelationalStore interface {
	Versions(ctx context.Context, messageID string) ([]relational.Version, error)
	ForgetChannel(ctx context.Context, channelID string) (map[string]int64, error)
}

// SearchStore is the part of the search projection the API reads.
type SearchStore interface {
	Get(ctx context.Context, id string) (*search.Document, error)
	ForgetChannel(ctx context.Context, channel string) (int, error)
}

// Deps holds the collaborators of the ops server. Nil members disable the
// routes that need them.
type Deps struct {
	// Checks are probed by /readyz, keyed by component name.
	Checks map[string]HealthChecker

	Ignore     IgnoreList
	Relational RelationalStore
	Search     SearchStore
}

// Handler serves the ops endpoints.
type Handler struct {
	deps      Deps
	startedAt time.Time
	timeout   time.Duration
}

// NewHandler creates a handler. timeout bounds each readiness probe.
func NewHandler(deps Deps, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{deps: deps, startedAt: time.Now(), timeout: timeout}
}

// NewRouter builds the ops router.
func NewRouter(cfg config.ServerConfig, deps Deps) http.Handler {
	h := NewHandler(deps, cfg.Timeout)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.AccessLog)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/healthz", h.Live)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		if cfg.AdminRequestsPerMinute > 0 {
			r.Use(httprate.Limit(
				cfg.AdminRequestsPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many admin requests", nil)
				}),
			))
		}

		if deps.Ignore != nil {
			r.Get("/ignore", h.ListIgnored)
			r.Post("/ignore", h.AddIgnored)
			r.Delete("/ignore/{channelID}", h.RemoveIgnored)
		}
		if deps.Relational != nil {
			r.Get("/messages/{messageID}/versions", h.MessageVersions)
		}
		if deps.Search != nil {
			r.Get("/search/{messageID}", h.SearchDocument)
		}
		if deps.Relational != nil || deps.Search != nil {
			r.Post("/channels/{channelID}/forget", h.ForgetChannel)
		}
	})

	return r
}
