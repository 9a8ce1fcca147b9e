// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/preference"
	"github.com/powerstream/rankd/internal/signals"
)

// Journal is the optional durable sink for accepted events.
// Satisfied by badgerlog.Journal.
type Journal interface {
	Append(event models.ActivityEvent) error
}

// Router consumes activity events and folds them into the preference
// aggregator and signal store.
type Router struct {
	router *message.Router
	logger zerolog.Logger
}

// NewRouter wires the activity handler onto the bus with retry and
// panic-recovery middleware. journal may be nil when durable journaling
// is disabled.
func NewRouter(cfg config.EventsConfig, bus *Bus, prefs *preference.Aggregator,
	store *signals.Store, journal Journal) (*Router, error) {
	logger := logging.With().Str("component", "events").Logger()
	adapter := newLoggerAdapter(logger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryCount,
		InitialInterval: cfg.RetryInterval,
		Logger:          adapter,
	}
	router.AddMiddleware(
		middleware.Recoverer,
		retry.Middleware,
	)

	handler := &activityHandler{
		prefs:   prefs,
		store:   store,
		journal: journal,
		logger:  logger,
	}
	router.AddNoPublisherHandler(
		"activity-aggregation",
		TopicActivity,
		bus.Subscriber(),
		handler.handle,
	)

	return &Router{router: router, logger: logger}, nil
}

// Run blocks consuming events until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel closed once the router is consuming.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router.
func (r *Router) Close() error {
	return r.router.Close()
}

// activityHandler folds one published event into the aggregation state.
type activityHandler struct {
	prefs   *preference.Aggregator
	store   *signals.Store
	journal Journal
	logger  zerolog.Logger
}

// handle decodes and applies one activity message. Malformed payloads
// are dropped (retrying cannot fix them); aggregation errors propagate
// so the retry middleware re-delivers.
func (h *activityHandler) handle(msg *message.Message) error {
	var event models.ActivityEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		metrics.EventsDropped.WithLabelValues("undecodable").Inc()
		h.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable activity event")
		return nil
	}

	if h.journal != nil {
		if err := h.journal.Append(event); err != nil {
			return fmt.Errorf("journal append failed: %w", err)
		}
	}

	if err := h.prefs.RecordEvent(event); err != nil {
		if errors.Is(err, models.ErrInvalidArgument) {
			metrics.EventsDropped.WithLabelValues("invalid").Inc()
			h.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping invalid activity event")
			return nil
		}
		return err
	}

	// Engagement counters only update for content the store knows about;
	// events for retired or foreign content still shape the profile.
	if err := h.store.ApplyEvent(event.ContentID, event.EventType); err != nil &&
		!errors.Is(err, models.ErrNotFound) {
		return err
	}

	return nil
}
