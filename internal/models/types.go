// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package models

import (
	"time"
)

// ContentType classifies a content item on the platform.
type ContentType string

const (
	// ContentTypePost is a standard feed post.
	ContentTypePost ContentType = "post"
	// ContentTypeReel is a short-form video.
	ContentTypeReel ContentType = "reel"
	// ContentTypeStory is an ephemeral story.
	ContentTypeStory ContentType = "story"
)

// ContentTypes lists all valid content types in a stable order.
// Cold-start affinity is uniform over this set.
func ContentTypes() []ContentType {
	return []ContentType{ContentTypePost, ContentTypeReel, ContentTypeStory}
}

// Valid reports whether the content type is one of the known values.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypePost, ContentTypeReel, ContentTypeStory:
		return true
	default:
		return false
	}
}

// EventType classifies user activity for preference aggregation.
type EventType string

const (
	// EventView is a passive content view.
	EventView EventType = "view"
	// EventLike is an explicit positive reaction.
	EventLike EventType = "like"
	// EventShare is the strongest positive signal (content redistributed).
	EventShare EventType = "share"
	// EventComment is an active engagement with the content.
	EventComment EventType = "comment"
	// EventSkip is a negative signal (content dismissed without engagement).
	EventSkip EventType = "skip"
)

// Valid reports whether the event type is one of the known values.
func (e EventType) Valid() bool {
	switch e {
	case EventView, EventLike, EventShare, EventComment, EventSkip:
		return true
	default:
		return false
	}
}

// Weight returns the interest weight for this event type, normalized to [0, 1].
// Ordering follows the platform's engagement hierarchy:
// share > comment > like > view > skip (skip is a negative observation).
func (e EventType) Weight() float64 {
	switch e {
	case EventShare:
		return 1.0
	case EventComment:
		return 0.7
	case EventLike:
		return 0.5
	case EventView:
		return 0.15
	case EventSkip:
		return 0.0
	default:
		return 0.0
	}
}

// LearningRate returns the per-event-type EWMA learning rate.
// Stronger signals move the profile faster.
func (e EventType) LearningRate() float64 {
	switch e {
	case EventShare:
		return 0.20
	case EventComment:
		return 0.15
	case EventLike:
		return 0.10
	case EventView:
		return 0.04
	case EventSkip:
		return 0.06
	default:
		return 0.0
	}
}

// EngagementStats holds mutable interaction counters for a content item.
// Counters are monotonically non-decreasing until the item is retired.
type EngagementStats struct {
	// Views is the total view count.
	Views int64 `json:"views"`

	// Likes is the total like count.
	Likes int64 `json:"likes"`

	// Shares is the total share count.
	Shares int64 `json:"shares"`

	// Comments is the total comment count.
	Comments int64 `json:"comments"`

	// Impressions is the number of times the item was served.
	// The engagement rate denominator.
	Impressions int64 `json:"impressions"`
}

// Interactions returns the total interaction count (everything except impressions).
func (s EngagementStats) Interactions() int64 {
	return s.Views + s.Likes + s.Shares + s.Comments
}

// ContentItem is a content record owned by the Signal Store.
// The embedding is immutable once published; engagement stats mutate over time.
type ContentItem struct {
	// ID is the opaque unique content identifier.
	ID string `json:"id"`

	// ContentType is the item's content type.
	ContentType ContentType `json:"content_type"`

	// Embedding is the fixed-length content representation vector.
	// All items in a deployment share one dimension.
	Embedding []float64 `json:"embedding,omitempty"`

	// PublishedAt is when the item went live.
	PublishedAt time.Time `json:"published_at"`

	// Stats holds the mutable engagement counters.
	Stats EngagementStats `json:"stats"`

	// Tags are interest tags attached to the item (hashtags, category).
	Tags []string `json:"tags,omitempty"`
}

// Signals is the per-item signal bundle returned by the Signal Store.
// Engagement and Freshness are normalized to [0, 1] at read time.
type Signals struct {
	// ContentID is the item the signals belong to.
	ContentID string `json:"content_id"`

	// ContentType is the item's content type.
	ContentType ContentType `json:"content_type"`

	// Engagement is the clipped interaction rate (interactions / impressions).
	Engagement float64 `json:"engagement"`

	// Freshness is the half-life-decayed recency signal, computed at read time.
	Freshness float64 `json:"freshness"`

	// Embedding is a read-only reference to the item's embedding.
	Embedding []float64 `json:"-"`

	// PublishedAt is carried for deterministic tie-breaking.
	PublishedAt time.Time `json:"published_at"`

	// Tags are the item's interest tags.
	Tags []string `json:"-"`
}

// ActivityEvent is an immutable, append-only activity record.
type ActivityEvent struct {
	// UserID identifies the acting user.
	UserID string `json:"user_id"`

	// ContentID identifies the content acted on.
	ContentID string `json:"content_id"`

	// EventType classifies the activity.
	EventType EventType `json:"event_type"`

	// ContentType is the type of the content acted on, when known.
	ContentType ContentType `json:"content_type,omitempty"`

	// Tags are interest tags carried by the content (hashtags, category).
	Tags []string `json:"tags,omitempty"`

	// Timestamp is when the activity occurred. Zero means unknown;
	// events without timestamps apply in arrival order.
	Timestamp time.Time `json:"timestamp"`
}

// EngagementStyle labels a user's dominant engagement pattern.
type EngagementStyle string

const (
	// StyleLurker has too little activity to classify.
	StyleLurker EngagementStyle = "lurker"
	// StylePassiveConsumer mostly views without reacting.
	StylePassiveConsumer EngagementStyle = "passive_consumer"
	// StyleActiveEngager reacts to a meaningful share of what they view.
	StyleActiveEngager EngagementStyle = "active_engager"
	// StyleCreator shares and comments more than they consume.
	StyleCreator EngagementStyle = "creator"
	// StyleSocialButterfly engages socially (comments, shares) across many items.
	StyleSocialButterfly EngagementStyle = "social_butterfly"
)

// UserProfile is a user's decayed preference state.
// Exactly one live profile exists per user; it is mutated only by the
// preference aggregator.
type UserProfile struct {
	// UserID is the unique user identifier.
	UserID string `json:"user_id"`

	// ContentTypeAffinity maps content type to preference weight.
	// Weights are non-negative and sum to 1 within floating tolerance.
	ContentTypeAffinity map[ContentType]float64 `json:"content_type_affinity"`

	// InterestVector maps interest tag to decayed weight in [0, 1].
	InterestVector map[string]float64 `json:"interest_vector"`

	// ActiveHourHistogram counts activity per hour of day (24 slots).
	ActiveHourHistogram [24]int64 `json:"active_hour_histogram"`

	// Confidence is in [0, 1]; grows with event volume, decays with age.
	Confidence float64 `json:"confidence"`

	// EventCount is the total number of events observed.
	EventCount int64 `json:"event_count"`

	// EventTypeCounts tracks decayed per-type counts for style classification.
	EventTypeCounts map[EventType]float64 `json:"event_type_counts,omitempty"`

	// LastUpdatedAt is when the profile last absorbed an event or decay pass.
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Clone returns a deep copy safe for concurrent readers.
func (p *UserProfile) Clone() *UserProfile {
	c := &UserProfile{
		UserID:              p.UserID,
		ContentTypeAffinity: make(map[ContentType]float64, len(p.ContentTypeAffinity)),
		InterestVector:      make(map[string]float64, len(p.InterestVector)),
		ActiveHourHistogram: p.ActiveHourHistogram,
		Confidence:          p.Confidence,
		EventCount:          p.EventCount,
		EventTypeCounts:     make(map[EventType]float64, len(p.EventTypeCounts)),
		LastUpdatedAt:       p.LastUpdatedAt,
	}
	for k, v := range p.ContentTypeAffinity {
		c.ContentTypeAffinity[k] = v
	}
	for k, v := range p.InterestVector {
		c.InterestVector[k] = v
	}
	for k, v := range p.EventTypeCounts {
		c.EventTypeCounts[k] = v
	}
	return c
}

// ScoreRecord is the ephemeral per-candidate ranking result. Never persisted.
type ScoreRecord struct {
	// ContentID is the scored candidate.
	ContentID string `json:"id"`

	// RawSignals holds the named normalized components that went into the blend.
	RawSignals map[string]float64 `json:"raw_signals,omitempty"`

	// BlendedScore is the weighted combination of raw signals.
	BlendedScore float64 `json:"score"`

	// Reason names the dominant weighted contributing signal.
	Reason string `json:"reason"`
}

// ModerationAction is the policy decision derived from category scores.
type ModerationAction string

const (
	// ActionApprove publishes the content unrestricted.
	ActionApprove ModerationAction = "approve"
	// ActionFlag publishes the content but queues it for human review.
	ActionFlag ModerationAction = "flag"
	// ActionReject blocks the content.
	ActionReject ModerationAction = "reject"
)

// ModerationVerdict is the ephemeral per-request moderation result.
type ModerationVerdict struct {
	// CategoryScores maps category name to risk in [0, 1].
	CategoryScores map[string]float64 `json:"categories"`

	// Action is the derived policy decision.
	Action ModerationAction `json:"action"`

	// ModelVersion identifies the scorer set and threshold config in effect.
	ModelVersion string `json:"model_version"`
}

// Safe reports whether the content may be published (action != reject).
func (v ModerationVerdict) Safe() bool {
	return v.Action != ActionReject
}
