// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package api serves the Rankd HTTP surface: ranking, similarity,
// preference summaries, moderation, activity ingestion, content
// registration, health, and Prometheus metrics.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/moderation"
	"github.com/powerstream/rankd/internal/preference"
	"github.com/powerstream/rankd/internal/ranking"
	"github.com/powerstream/rankd/internal/signals"
	"github.com/powerstream/rankd/internal/simindex"
)

// Publisher accepts validated activity events for asynchronous
// aggregation. Satisfied by events.Bus.
type Publisher interface {
	PublishActivity(event models.ActivityEvent) error
}

// Router holds the handlers' dependencies.
type Router struct {
	cfg       config.ServerConfig
	store     *signals.Store
	prefs     *preference.Aggregator
	index     *simindex.Index
	ranker    *ranking.Pipeline
	moderator *moderation.Pipeline
	publisher Publisher
	ready     <-chan struct{}
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewRouter builds the chi router with the full middleware stack and all
// API routes mounted. ready is closed once the event router consumes;
// until then activity ingestion answers Unavailable so accepted events
// are never published into a subscriberless bus and dropped. A nil ready
// channel means ingestion is always ready.
func NewRouter(cfg config.ServerConfig, store *signals.Store, prefs *preference.Aggregator,
	index *simindex.Index, ranker *ranking.Pipeline, moderator *moderation.Pipeline,
	publisher Publisher, ready <-chan struct{}) http.Handler {
	router := &Router{
		cfg:       cfg,
		store:     store,
		prefs:     prefs,
		index:     index,
		ranker:    ranker,
		moderator: moderator,
		publisher: publisher,
		ready:     ready,
		validate:  validator.New(),
		logger:    logging.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if cfg.RateLimitReqs > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	r.Use(router.instrument)

	r.Get("/health", router.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/rank", router.handleRank)
		r.Post("/similar", router.handleSimilar)
		r.Post("/user/preferences", router.handlePreferences)
		r.Post("/moderate", router.handleModerate)
		r.Post("/activity", router.handleActivity)
		r.Put("/content/{id}", router.handleContentUpsert)
	})

	return r
}

// ingestReady reports whether the event pipeline is consuming.
func (router *Router) ingestReady() bool {
	if router.ready == nil {
		return true
	}
	select {
	case <-router.ready:
		return true
	default:
		return false
	}
}

// instrument records request counts and latency per matched route.
func (router *Router) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

		router.logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}
