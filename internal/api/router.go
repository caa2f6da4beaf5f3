// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/marquee/internal/recommend/algorithms"
	"github.com/tomtom215/marquee/internal/recommend/engine"
	"github.com/tomtom215/marquee/internal/recommend/storage"
)

// Engine is the read side of the recommendation engine the API reports on.
type Engine interface {
	Status() engine.Status
	WeightStatistics() algorithms.WeightStatistics
}

// Retrainer queues a training run. TriggerRetrain reports false when a run is
// already active or queued.
type Retrainer interface {
	TriggerRetrain() bool
}

// ModelLister lists persisted models.
type ModelLister interface {
	List(ctx context.Context) ([]storage.Metadata, error)
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handler serves the ops endpoints.
type Handler struct {
	engine    Engine
	retrainer Retrainer
	models    ModelLister
}

// NewHandler creates a handler. retrainer and models may be nil; the routes
// they back then answer 501 and an empty list.
func NewHandler(eng Engine, retrainer Retrainer, models ModelLister) *Handler {
	return &Handler{engine: eng, retrainer: retrainer, models: models}
}

// NewRouter builds the ops router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Instrument())

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.Use(RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/models", h.ListModels)
		r.Get("/models/status", h.ModelStatus)
		r.Post("/models/retrain", h.Retrain)
		r.Get("/weights/stats", h.WeightStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
