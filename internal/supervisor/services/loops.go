// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/events"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/preference"
	"github.com/powerstream/rankd/internal/signals"
	"github.com/powerstream/rankd/internal/simindex"
)

// IndexRebuildService periodically rebuilds the similarity index from a
// signal store snapshot, picking up embedding updates and dropped items.
type IndexRebuildService struct {
	store  *signals.Store
	index  *simindex.Index
	cfg    config.IndexConfig
	logger zerolog.Logger
}

// NewIndexRebuildService creates the rebuild loop.
func NewIndexRebuildService(cfg config.IndexConfig, store *signals.Store, index *simindex.Index) *IndexRebuildService {
	return &IndexRebuildService{
		store:  store,
		index:  index,
		cfg:    cfg,
		logger: logging.With().Str("service", "index-rebuild").Logger(),
	}
}

// Serve implements suture.Service.
func (s *IndexRebuildService) Serve(ctx context.Context) error {
	return tickerLoop(ctx, s.cfg.RebuildInterval, func(context.Context) error {
		s.index.Rebuild(s.store.Snapshot())
		return nil
	}, s.logger, "index rebuild")
}

// String names the service in supervisor logs.
func (s *IndexRebuildService) String() string { return "index-rebuild" }

// TrendingRefreshService keeps the trending cache warm so ranking
// requests rarely pay for a recomputation.
type TrendingRefreshService struct {
	store  *signals.Store
	cfg    config.SignalsConfig
	logger zerolog.Logger
}

// NewTrendingRefreshService creates the refresh loop.
func NewTrendingRefreshService(cfg config.SignalsConfig, store *signals.Store) *TrendingRefreshService {
	return &TrendingRefreshService{
		store:  store,
		cfg:    cfg,
		logger: logging.With().Str("service", "trending-refresh").Logger(),
	}
}

// Serve implements suture.Service.
func (s *TrendingRefreshService) Serve(ctx context.Context) error {
	return tickerLoop(ctx, s.cfg.TrendingTTL, func(ctx context.Context) error {
		_, err := s.store.Trending(ctx, s.cfg.TrendingSize)
		return err
	}, s.logger, "trending refresh")
}

// String names the service in supervisor logs.
func (s *TrendingRefreshService) String() string { return "trending-refresh" }

// DecaySweepService applies interest decay to idle profiles on a
// schedule, so users who go quiet lose stale interest weight even
// without new events.
type DecaySweepService struct {
	prefs  *preference.Aggregator
	cfg    config.PreferenceConfig
	logger zerolog.Logger
}

// NewDecaySweepService creates the sweep loop.
func NewDecaySweepService(cfg config.PreferenceConfig, prefs *preference.Aggregator) *DecaySweepService {
	return &DecaySweepService{
		prefs:  prefs,
		cfg:    cfg,
		logger: logging.With().Str("service", "decay-sweep").Logger(),
	}
}

// Serve implements suture.Service.
func (s *DecaySweepService) Serve(ctx context.Context) error {
	return tickerLoop(ctx, s.cfg.DecaySweepInterval, s.prefs.DecaySweep, s.logger, "decay sweep")
}

// String names the service in supervisor logs.
func (s *DecaySweepService) String() string { return "decay-sweep" }

// EventRouterService supervises the Watermill event router.
type EventRouterService struct {
	router *events.Router
}

// NewEventRouterService wraps the event router for supervision.
func NewEventRouterService(router *events.Router) *EventRouterService {
	return &EventRouterService{router: router}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	return s.router.Run(ctx)
}

// String names the service in supervisor logs.
func (s *EventRouterService) String() string { return "event-router" }

// JournalGCRunner is the subset of the journal the GC service needs.
type JournalGCRunner interface {
	RunGC(ctx context.Context) error
}

// JournalGCService runs Badger value-log garbage collection for the
// activity journal.
type JournalGCService struct {
	journal JournalGCRunner
}

// NewJournalGCService wraps the journal's GC loop for supervision.
func NewJournalGCService(journal JournalGCRunner) *JournalGCService {
	return &JournalGCService{journal: journal}
}

// Serve implements suture.Service.
func (s *JournalGCService) Serve(ctx context.Context) error {
	return s.journal.RunGC(ctx)
}

// String names the service in supervisor logs.
func (s *JournalGCService) String() string { return "journal-gc" }
