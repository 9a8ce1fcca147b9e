// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Command server runs the Rankd ranking and moderation engine: HTTP API,
// event pipeline, and background maintenance loops under a Suture
// supervision tree.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/powerstream/rankd/internal/api"
	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/events"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/moderation"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/preference"
	"github.com/powerstream/rankd/internal/ranking"
	"github.com/powerstream/rankd/internal/signals"
	"github.com/powerstream/rankd/internal/signals/badgerlog"
	"github.com/powerstream/rankd/internal/simindex"
	"github.com/powerstream/rankd/internal/supervisor"
	"github.com/powerstream/rankd/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	modelVersion := cfg.ModelVersion()
	logging.Info().
		Str("model_version", modelVersion).
		Msg("starting rankd")

	store := signals.NewStore(cfg.Signals, cfg.Index.EmbeddingDim)
	prefs := preference.NewAggregator(cfg.Preference)
	index := simindex.New(cfg.Index)

	var journal *badgerlog.Journal
	var journalSink events.Journal
	if cfg.Journal.Enabled {
		journal, err = badgerlog.Open(cfg.Journal)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open activity journal")
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logging.Err(err).Msg("failed to close activity journal")
			}
		}()
		journalSink = journal

		if err := replayJournal(journal, prefs, store); err != nil {
			logging.Fatal().Err(err).Msg("journal replay failed")
		}
	}

	bus := events.NewBus(cfg.Events)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Err(err).Msg("failed to close event bus")
		}
	}()

	router, err := events.NewRouter(cfg.Events, bus, prefs, store, journalSink)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build event router")
	}

	ranker := ranking.New(cfg.Ranking, store, prefs, index, modelVersion)
	moderator := moderation.New(cfg.Moderation, moderation.DefaultScorers(), modelVersion)

	handler := api.NewRouter(cfg.Server, store, prefs, index, ranker, moderator, bus, router.Running())

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewEventRouterService(router))
	if journal != nil {
		tree.AddDataService(services.NewJournalGCService(journal))
	}
	tree.AddScoringService(services.NewIndexRebuildService(cfg.Index, store, index))
	tree.AddScoringService(services.NewTrendingRefreshService(cfg.Signals, store))
	tree.AddScoringService(services.NewDecaySweepService(cfg.Preference, prefs))
	tree.AddAPIService(services.NewHTTPService(cfg.Server, handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Err(err).Msg("supervisor tree exited")
		os.Exit(1)
	}
	logging.Info().Msg("rankd stopped")
}

// replayJournal rebuilds in-memory aggregation state from the durable
// journal. Invalid events are skipped; engagement counters only apply to
// content the store still knows about.
func replayJournal(journal *badgerlog.Journal, prefs *preference.Aggregator, store *signals.Store) error {
	return journal.Replay(func(event models.ActivityEvent) error {
		if err := prefs.RecordEvent(event); err != nil {
			if errors.Is(err, models.ErrInvalidArgument) {
				return nil
			}
			return err
		}
		if err := store.ApplyEvent(event.ContentID, event.EventType); err != nil &&
			!errors.Is(err, models.ErrNotFound) {
			return err
		}
		return nil
	})
}
