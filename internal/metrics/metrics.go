// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package metrics defines the Prometheus instrumentation for Rankd.
// Collectors are registered with the default registry via promauto and
// exposed on /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts API requests by route and status class.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total API requests by route and status code.",
	}, []string{"route", "status"})

	// RequestDuration observes API request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rankd",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "API request latency by route.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"route"})

	// ContentItems gauges the number of items in the signal store.
	ContentItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rankd",
		Subsystem: "signals",
		Name:      "content_items",
		Help:      "Content items currently held by the signal store.",
	})

	// TrendingCacheHits counts trending reads served from the cached set.
	TrendingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "signals",
		Name:      "trending_cache_hits_total",
		Help:      "Trending reads served from the cached set.",
	})

	// TrendingCacheMisses counts trending reads that recomputed the set.
	TrendingCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "signals",
		Name:      "trending_cache_misses_total",
		Help:      "Trending reads that recomputed the set.",
	})

	// UserProfiles gauges the number of live user profiles.
	UserProfiles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rankd",
		Subsystem: "preference",
		Name:      "user_profiles",
		Help:      "Live user profiles held by the aggregator.",
	})

	// EventsProcessed counts activity events absorbed by type.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "preference",
		Name:      "events_processed_total",
		Help:      "Activity events absorbed into profiles by event type.",
	}, []string{"event_type"})

	// EventsDropped counts activity events rejected before aggregation.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "preference",
		Name:      "events_dropped_total",
		Help:      "Activity events rejected before aggregation, by reason.",
	}, []string{"reason"})

	// IndexSize gauges the number of vectors in the similarity index.
	IndexSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rankd",
		Subsystem: "index",
		Name:      "vectors",
		Help:      "Vectors currently held by the similarity index.",
	})

	// IndexRebuilds counts similarity index rebuilds.
	IndexRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "index",
		Name:      "rebuilds_total",
		Help:      "Completed similarity index rebuilds.",
	})

	// RankRequests counts ranking requests by outcome.
	RankRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "ranking",
		Name:      "requests_total",
		Help:      "Ranking requests by outcome (ok, invalid, unavailable, error).",
	}, []string{"outcome"})

	// RankCandidates observes candidate set sizes per ranking request.
	RankCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rankd",
		Subsystem: "ranking",
		Name:      "candidates",
		Help:      "Candidate set size per ranking request.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// BreakerState gauges the ranking signal-read breaker state
	// (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rankd",
		Subsystem: "ranking",
		Name:      "breaker_state",
		Help:      "Signal-read circuit breaker state (0 closed, 1 half-open, 2 open).",
	})

	// ModerationActions counts moderation verdicts by action.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "moderation",
		Name:      "actions_total",
		Help:      "Moderation verdicts by action (approve, flag, reject).",
	}, []string{"action"})

	// JournalAppends counts activity events appended to the Badger journal.
	JournalAppends = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "journal",
		Name:      "appends_total",
		Help:      "Activity events appended to the durable journal.",
	})

	// JournalReplayed counts events replayed from the journal at startup.
	JournalReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankd",
		Subsystem: "journal",
		Name:      "replayed_total",
		Help:      "Activity events replayed from the journal at startup.",
	})
)
