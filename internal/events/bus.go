// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package events carries activity events from the API to the preference
// aggregator and signal store over an in-process Watermill pub/sub. The
// API acknowledges ingestion immediately; aggregation happens on the
// router's handler goroutines with retry and panic recovery.
package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/models"
)

// TopicActivity is the activity event topic.
const TopicActivity = "activity.events"

// metadata keys set on published messages.
const (
	metaEventType = "event_type"
	metaUserID    = "user_id"
)

// Bus is the in-process activity event transport.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the in-process pub/sub with the configured buffer.
func NewBus(cfg config.EventsConfig) *Bus {
	logger := newLoggerAdapter(logging.With().Str("component", "events").Logger())

	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, logger),
	}
}

// PublishActivity validates and publishes one activity event.
func (b *Bus) PublishActivity(event models.ActivityEvent) error {
	if event.UserID == "" || event.ContentID == "" {
		return fmt.Errorf("%w: user id and content id are required", models.ErrInvalidArgument)
	}
	if !event.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", models.ErrInvalidArgument, event.EventType)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode activity event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(metaEventType, string(event.EventType))
	msg.Metadata.Set(metaUserID, event.UserID)

	if err := b.pubsub.Publish(TopicActivity, msg); err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	return nil
}

// Subscriber exposes the underlying subscriber for the router.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close shuts down the pub/sub and releases subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
