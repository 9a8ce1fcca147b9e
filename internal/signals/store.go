// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package signals implements the in-memory signal store: the authoritative
// holder of content items, their engagement counters, and the normalized
// per-item signal bundles the ranking pipeline consumes.
//
// Freshness is computed at read time from the item's publish timestamp, so
// stored state never goes stale. Engagement is the clipped interaction rate
// over impressions, with a configurable neutral value for items that have
// not been served yet.
package signals

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/scoring"
)

// Store is the in-memory content signal store.
// All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items map[string]*models.ContentItem

	cfg          config.SignalsConfig
	embeddingDim int
	logger       zerolog.Logger

	// now is swappable for tests.
	now func() time.Time

	// trending cache, recomputed at most once per TTL
	trendingMu      sync.RWMutex
	trendingIDs     []string
	trendingExpires time.Time
	trendingGroup   singleflight.Group
}

// NewStore creates an empty signal store. embeddingDim is the fixed
// dimension every stored embedding must match.
func NewStore(cfg config.SignalsConfig, embeddingDim int) *Store {
	return &Store{
		items:        make(map[string]*models.ContentItem),
		cfg:          cfg,
		embeddingDim: embeddingDim,
		logger:       logging.With().Str("component", "signals").Logger(),
		now:          time.Now,
	}
}

// Upsert registers or updates a content item. The embedding, when present,
// must match the store's configured dimension. Updating an existing item
// with zero-valued stats preserves the accumulated engagement counters;
// non-zero incoming stats replace them (authoritative backfill).
func (s *Store) Upsert(item models.ContentItem) error {
	if item.ID == "" {
		return fmt.Errorf("%w: content id is required", models.ErrInvalidArgument)
	}
	if !item.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", models.ErrInvalidArgument, item.ContentType)
	}
	if len(item.Embedding) > 0 && len(item.Embedding) != s.embeddingDim {
		return fmt.Errorf("%w: embedding dimension %d, store requires %d",
			models.ErrInvalidArgument, len(item.Embedding), s.embeddingDim)
	}
	if item.PublishedAt.IsZero() {
		item.PublishedAt = s.now()
	}

	stored := item
	stored.Embedding = append([]float64(nil), item.Embedding...)
	stored.Tags = append([]string(nil), item.Tags...)

	s.mu.Lock()
	if prev, ok := s.items[item.ID]; ok && stored.Stats == (models.EngagementStats{}) {
		stored.Stats = prev.Stats
	}
	s.items[item.ID] = &stored
	size := len(s.items)
	s.mu.Unlock()

	metrics.ContentItems.Set(float64(size))
	s.logger.Debug().
		Str("content_id", item.ID).
		Str("content_type", string(item.ContentType)).
		Msg("content upserted")
	return nil
}

// Get returns the signal bundle for a single content item.
// Returns models.ErrNotFound for unknown IDs.
func (s *Store) Get(id string) (models.Signals, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	if !ok {
		s.mu.RUnlock()
		return models.Signals{}, fmt.Errorf("content %q: %w", id, models.ErrNotFound)
	}
	sig := s.signalsLocked(item, s.now())
	s.mu.RUnlock()
	return sig, nil
}

// GetBatch returns signal bundles for the given IDs, silently omitting
// unknown ones. The result order follows the input order.
func (s *Store) GetBatch(ids []string) []models.Signals {
	now := s.now()
	out := make([]models.Signals, 0, len(ids))

	s.mu.RLock()
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, s.signalsLocked(item, now))
		}
	}
	s.mu.RUnlock()
	return out
}

// GetItem returns a copy of a stored content item.
// Returns models.ErrNotFound for unknown IDs.
func (s *Store) GetItem(id string) (models.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return models.ContentItem{}, fmt.Errorf("content %q: %w", id, models.ErrNotFound)
	}
	c := *item
	c.Embedding = append([]float64(nil), item.Embedding...)
	c.Tags = append([]string(nil), item.Tags...)
	return c, nil
}

// ApplyEvent bumps the engagement counters of a content item for one
// activity event. Views and skips also count as impressions (the item was
// served either way). Returns models.ErrNotFound for unknown content.
func (s *Store) ApplyEvent(contentID string, eventType models.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[contentID]
	if !ok {
		return fmt.Errorf("content %q: %w", contentID, models.ErrNotFound)
	}

	switch eventType {
	case models.EventView:
		item.Stats.Views++
		item.Stats.Impressions++
	case models.EventLike:
		item.Stats.Likes++
	case models.EventShare:
		item.Stats.Shares++
	case models.EventComment:
		item.Stats.Comments++
	case models.EventSkip:
		item.Stats.Impressions++
	default:
		return fmt.Errorf("%w: unknown event type %q", models.ErrInvalidArgument, eventType)
	}
	return nil
}

// Snapshot returns copies of all stored items, for index rebuilds.
func (s *Store) Snapshot() []models.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ContentItem, 0, len(s.items))
	for _, item := range s.items {
		c := *item
		c.Embedding = append([]float64(nil), item.Embedding...)
		c.Tags = append([]string(nil), item.Tags...)
		out = append(out, c)
	}
	return out
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// signalsLocked builds the normalized signal bundle for an item.
// Caller must hold at least a read lock.
func (s *Store) signalsLocked(item *models.ContentItem, now time.Time) models.Signals {
	engagement := s.cfg.NeutralEngagement
	if item.Stats.Impressions > 0 {
		engagement = scoring.Clamp01(
			float64(item.Stats.Interactions()) / float64(item.Stats.Impressions))
	}

	return models.Signals{
		ContentID:   item.ID,
		ContentType: item.ContentType,
		Engagement:  engagement,
		Freshness:   scoring.HalfLifeDecay(now.Sub(item.PublishedAt), s.cfg.FreshnessHalfLife),
		Embedding:   item.Embedding,
		PublishedAt: item.PublishedAt,
		Tags:        item.Tags,
	}
}

// Trending returns up to n content IDs ordered by trending score:
// engagement weighted by freshness, so stale viral content ages out. The
// computed set is cached for the configured TTL; concurrent recomputations
// collapse into one via singleflight.
func (s *Store) Trending(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: trending count must be positive", models.ErrInvalidArgument)
	}

	s.trendingMu.RLock()
	cached, expires := s.trendingIDs, s.trendingExpires
	s.trendingMu.RUnlock()

	if s.now().Before(expires) {
		metrics.TrendingCacheHits.Inc()
		return capIDs(cached, n), nil
	}

	metrics.TrendingCacheMisses.Inc()
	result, err, _ := s.trendingGroup.Do("trending", func() (interface{}, error) {
		ids := s.computeTrending()
		s.trendingMu.Lock()
		s.trendingIDs = ids
		s.trendingExpires = s.now().Add(s.cfg.TrendingTTL)
		s.trendingMu.Unlock()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, _ := result.([]string)
	return capIDs(ids, n), nil
}

// computeTrending scans the full store and ranks items by
// engagement * freshness, descending, ties broken by ID.
func (s *Store) computeTrending() []string {
	now := s.now()

	type scored struct {
		id    string
		score float64
	}

	s.mu.RLock()
	ranked := make([]scored, 0, len(s.items))
	for _, item := range s.items {
		sig := s.signalsLocked(item, now)
		ranked = append(ranked, scored{id: item.ID, score: sig.Engagement * sig.Freshness})
	}
	s.mu.RUnlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	limit := s.cfg.TrendingSize
	if limit > len(ranked) {
		limit = len(ranked)
	}

	ids := make([]string, limit)
	for i := 0; i < limit; i++ {
		ids[i] = ranked[i].id
	}

	s.logger.Debug().Int("size", limit).Msg("trending set recomputed")
	return ids
}

// capIDs returns at most n leading IDs without aliasing the cached slice.
func capIDs(ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	return append([]string(nil), ids[:n]...)
}
