// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/powerstream/rankd/internal/models"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting (RANKD_ prefix)
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Signals    SignalsConfig    `koanf:"signals"`
	Preference PreferenceConfig `koanf:"preference"`
	Index      IndexConfig      `koanf:"index"`
	Ranking    RankingConfig    `koanf:"ranking"`
	Moderation ModerationConfig `koanf:"moderation"`
	Events     EventsConfig     `koanf:"events"`
	Journal    JournalConfig    `koanf:"journal"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host" validate:"required"`

	// Port is the listen port.
	Port int `koanf:"port" validate:"gte=1,lte=65535"`

	// Timeout is the per-request read/write timeout.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RateLimitReqs is the allowed requests per window per client IP.
	// 0 disables rate limiting.
	RateLimitReqs int `koanf:"rate_limit_reqs" validate:"gte=0"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line in log output.
	Caller bool `koanf:"caller"`
}

// SignalsConfig holds signal store configuration.
type SignalsConfig struct {
	// FreshnessHalfLife is the recency decay half-life. Freshness halves
	// every FreshnessHalfLife of content age.
	FreshnessHalfLife time.Duration `koanf:"freshness_half_life" validate:"gt=0"`

	// NeutralEngagement is the engagement value assigned to items with
	// zero impressions, so brand-new content is neither buried nor boosted.
	NeutralEngagement float64 `koanf:"neutral_engagement" validate:"gte=0,lte=1"`

	// TrendingSize is how many items the trending set holds.
	TrendingSize int `koanf:"trending_size" validate:"gt=0"`

	// TrendingTTL is how long a computed trending set is served before
	// recomputation.
	TrendingTTL time.Duration `koanf:"trending_ttl" validate:"gt=0"`
}

// PreferenceConfig holds preference aggregator configuration.
type PreferenceConfig struct {
	// ConfidenceHalfCount is the event count at which profile confidence
	// reaches 0.5. Confidence approaches 1 asymptotically beyond it.
	ConfidenceHalfCount float64 `koanf:"confidence_half_count" validate:"gt=0"`

	// InterestHalfLife is the inactivity half-life for interest weights.
	InterestHalfLife time.Duration `koanf:"interest_half_life" validate:"gt=0"`

	// MaxInterests caps the interest vector size per user; the weakest
	// interests are evicted first.
	MaxInterests int `koanf:"max_interests" validate:"gt=0"`

	// DecaySweepInterval is how often the background sweep applies decay
	// to idle profiles.
	DecaySweepInterval time.Duration `koanf:"decay_sweep_interval" validate:"gt=0"`

	// StyleMinEvents is the minimum event count before a user can be
	// classified as anything other than a lurker.
	StyleMinEvents int64 `koanf:"style_min_events" validate:"gt=0"`

	// StyleCreatorShareRatio classifies a user as a creator when their
	// share fraction meets it.
	StyleCreatorShareRatio float64 `koanf:"style_creator_share_ratio" validate:"gt=0,lte=1"`

	// StyleSocialRatio classifies a user as a social butterfly when their
	// combined comment and share fraction meets it.
	StyleSocialRatio float64 `koanf:"style_social_ratio" validate:"gt=0,lte=1"`

	// StyleActiveRatio classifies a user as an active engager when their
	// non-view interaction fraction meets it.
	StyleActiveRatio float64 `koanf:"style_active_ratio" validate:"gt=0,lte=1"`

	// PeakHours is how many peak activity hours the profile summary reports.
	PeakHours int `koanf:"peak_hours" validate:"gt=0,lte=24"`
}

// IndexConfig holds similarity index configuration.
type IndexConfig struct {
	// EmbeddingDim is the fixed embedding dimension all items must share.
	EmbeddingDim int `koanf:"embedding_dim" validate:"gt=0"`

	// RebuildInterval is how often the index rebuilds from the signal store.
	RebuildInterval time.Duration `koanf:"rebuild_interval" validate:"gt=0"`
}

// RankingConfig holds ranking pipeline configuration.
type RankingConfig struct {
	// WeightEngagement is the blend weight for the engagement signal.
	WeightEngagement float64 `koanf:"weight_engagement" validate:"gte=0"`

	// WeightFreshness is the blend weight for the freshness signal.
	WeightFreshness float64 `koanf:"weight_freshness" validate:"gte=0"`

	// WeightAffinity is the blend weight for content-type affinity.
	WeightAffinity float64 `koanf:"weight_affinity" validate:"gte=0"`

	// WeightInterest is the blend weight for interest tag overlap.
	WeightInterest float64 `koanf:"weight_interest" validate:"gte=0"`

	// DefaultLimit is the result count when the request omits a limit.
	DefaultLimit int `koanf:"default_limit" validate:"gt=0"`

	// MaxLimit caps the per-request result count.
	MaxLimit int `koanf:"max_limit" validate:"gt=0"`

	// MaxSimilar caps the per-request similar-item count.
	MaxSimilar int `koanf:"max_similar" validate:"gt=0"`

	// RequestTimeout bounds a single ranking request end to end.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`

	// BreakerFailureThreshold is the consecutive-failure count that trips
	// the signal-read circuit breaker.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold" validate:"gt=0"`

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// ModerationConfig holds moderation pipeline configuration.
type ModerationConfig struct {
	// FlagThreshold flags content for review when any category score
	// meets it. Categories without an override use this value.
	FlagThreshold float64 `koanf:"flag_threshold" validate:"gt=0,lte=1"`

	// RejectThreshold rejects content when any category score meets it.
	// Must exceed FlagThreshold. Categories without an override use this
	// value.
	RejectThreshold float64 `koanf:"reject_threshold" validate:"gt=0,lte=1"`

	// Categories overrides the thresholds per category name, so one
	// category can be tuned stricter or looser than the rest.
	Categories map[string]CategoryThresholds `koanf:"categories" validate:"dive"`

	// MaxTextLength caps the moderated text size in bytes.
	MaxTextLength int `koanf:"max_text_length" validate:"gt=0"`
}

// CategoryThresholds holds per-category moderation threshold overrides.
type CategoryThresholds struct {
	// Flag is the category's flag threshold.
	Flag float64 `koanf:"flag" validate:"gt=0,lte=1"`

	// Reject is the category's reject threshold. Must exceed Flag.
	Reject float64 `koanf:"reject" validate:"gt=0,lte=1"`
}

// EventsConfig holds activity event pipeline configuration.
type EventsConfig struct {
	// BufferSize is the in-process pub/sub channel buffer.
	BufferSize int64 `koanf:"buffer_size" validate:"gt=0"`

	// RetryCount is how many times a failing handler is retried.
	RetryCount int `koanf:"retry_count" validate:"gte=0"`

	// RetryInterval is the initial backoff between handler retries.
	RetryInterval time.Duration `koanf:"retry_interval" validate:"gt=0"`

	// CloseTimeout bounds router shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout" validate:"gt=0"`
}

// JournalConfig holds the Badger activity journal configuration.
type JournalConfig struct {
	// Enabled turns on durable journaling of activity events.
	Enabled bool `koanf:"enabled"`

	// Path is the Badger database directory.
	Path string `koanf:"path"`

	// SyncWrites fsyncs every journal append. Durable but slower.
	SyncWrites bool `koanf:"sync_writes"`

	// GCInterval is how often Badger value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
}

// Validate checks that the configuration is internally consistent.
// Struct-level constraints run through validator tags; cross-field
// rules are checked explicitly.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: invalid configuration: %v", models.ErrConfiguration, err)
	}

	if c.Ranking.DefaultLimit > c.Ranking.MaxLimit {
		return fmt.Errorf("%w: ranking.default_limit (%d) exceeds ranking.max_limit (%d)",
			models.ErrConfiguration, c.Ranking.DefaultLimit, c.Ranking.MaxLimit)
	}

	weightSum := c.Ranking.WeightEngagement + c.Ranking.WeightFreshness +
		c.Ranking.WeightAffinity + c.Ranking.WeightInterest
	if weightSum <= 0 {
		return fmt.Errorf("%w: ranking weights must not all be zero", models.ErrConfiguration)
	}

	if c.Moderation.RejectThreshold <= c.Moderation.FlagThreshold {
		return fmt.Errorf("%w: moderation.reject_threshold (%.2f) must exceed moderation.flag_threshold (%.2f)",
			models.ErrConfiguration, c.Moderation.RejectThreshold, c.Moderation.FlagThreshold)
	}
	for category, t := range c.Moderation.Categories {
		if t.Reject <= t.Flag {
			return fmt.Errorf("%w: moderation.categories.%s: reject (%.2f) must exceed flag (%.2f)",
				models.ErrConfiguration, category, t.Reject, t.Flag)
		}
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("%w: journal.path is required when journal.enabled=true", models.ErrConfiguration)
	}

	return nil
}
