// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package signals

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(config.SignalsConfig{
		FreshnessHalfLife: 24 * time.Hour,
		NeutralEngagement: 0.5,
		TrendingSize:      100,
		TrendingTTL:       5 * time.Minute,
	}, 4)
}

func TestUpsertValidation(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		name string
		item models.ContentItem
	}{
		{
			name: "missing id",
			item: models.ContentItem{ContentType: models.ContentTypePost},
		},
		{
			name: "unknown content type",
			item: models.ContentItem{ID: "c1", ContentType: "livestream"},
		},
		{
			name: "embedding dimension mismatch",
			item: models.ContentItem{
				ID:          "c1",
				ContentType: models.ContentTypePost,
				Embedding:   []float64{1, 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Upsert(tt.item)
			if !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("Upsert() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get("ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFreshnessComputedAtReadTime(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Upsert(models.ContentItem{
		ID:          "c1",
		ContentType: models.ContentTypeReel,
		PublishedAt: base,
	}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	sig, err := s.Get("c1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if sig.Freshness != 1.0 {
		t.Errorf("freshness at publish = %f, want 1.0", sig.Freshness)
	}

	// One half-life later the same stored item reads at half freshness.
	s.now = func() time.Time { return base.Add(24 * time.Hour) }
	sig, _ = s.Get("c1")
	if math.Abs(sig.Freshness-0.5) > 1e-9 {
		t.Errorf("freshness after one half-life = %f, want 0.5", sig.Freshness)
	}
}

func TestEngagementRate(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(models.ContentItem{
		ID:          "c1",
		ContentType: models.ContentTypePost,
	}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	// No impressions yet: neutral default.
	sig, _ := s.Get("c1")
	if sig.Engagement != 0.5 {
		t.Errorf("engagement with zero impressions = %f, want neutral 0.5", sig.Engagement)
	}

	// 2 views (2 impressions), 1 like: rate = 3 interactions / 2 impressions, clamped to 1.
	for _, et := range []models.EventType{models.EventView, models.EventView, models.EventLike} {
		if err := s.ApplyEvent("c1", et); err != nil {
			t.Fatalf("ApplyEvent(%s) failed: %v", et, err)
		}
	}
	sig, _ = s.Get("c1")
	if sig.Engagement != 1.0 {
		t.Errorf("engagement = %f, want clamped 1.0", sig.Engagement)
	}

	// Skips add impressions without interactions and dilute the rate.
	for i := 0; i < 10; i++ {
		if err := s.ApplyEvent("c1", models.EventSkip); err != nil {
			t.Fatalf("ApplyEvent(skip) failed: %v", err)
		}
	}
	sig, _ = s.Get("c1")
	if math.Abs(sig.Engagement-0.25) > 1e-9 {
		t.Errorf("engagement after skips = %f, want 0.25", sig.Engagement)
	}
}

func TestApplyEventUnknownContent(t *testing.T) {
	s := testStore(t)
	if err := s.ApplyEvent("ghost", models.EventView); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("ApplyEvent() error = %v, want ErrNotFound", err)
	}
}

func TestGetBatchOmitsUnknown(t *testing.T) {
	s := testStore(t)
	for _, id := range []string{"a", "b"} {
		if err := s.Upsert(models.ContentItem{ID: id, ContentType: models.ContentTypePost}); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", id, err)
		}
	}

	got := s.GetBatch([]string{"b", "ghost", "a"})
	if len(got) != 2 {
		t.Fatalf("GetBatch() returned %d bundles, want 2", len(got))
	}
	if got[0].ContentID != "b" || got[1].ContentID != "a" {
		t.Errorf("GetBatch() order = [%s %s], want input order [b a]", got[0].ContentID, got[1].ContentID)
	}
}

func TestUpsertPreservesCounters(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(models.ContentItem{ID: "c1", ContentType: models.ContentTypePost}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := s.ApplyEvent("c1", models.EventLike); err != nil {
		t.Fatalf("ApplyEvent() failed: %v", err)
	}

	// Metadata-only update keeps the accumulated counters.
	if err := s.Upsert(models.ContentItem{
		ID:          "c1",
		ContentType: models.ContentTypePost,
		Tags:        []string{"music"},
	}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	item, err := s.GetItem("c1")
	if err != nil {
		t.Fatalf("GetItem() failed: %v", err)
	}
	if item.Stats.Likes != 1 {
		t.Errorf("Likes after metadata update = %d, want 1", item.Stats.Likes)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "music" {
		t.Errorf("Tags after update = %v, want [music]", item.Tags)
	}
}

func TestTrendingOrderAndCache(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	// hot: fresh with perfect engagement. cold: equally engaged but a
	// half-life older. dead: fresh but skipped into the ground.
	seed := []struct {
		id          string
		publishedAt time.Time
		likes       int64
		impressions int64
	}{
		{id: "hot", publishedAt: base, likes: 10, impressions: 10},
		{id: "cold", publishedAt: base.Add(-24 * time.Hour), likes: 10, impressions: 10},
		{id: "dead", publishedAt: base, likes: 0, impressions: 100},
	}
	for _, c := range seed {
		err := s.Upsert(models.ContentItem{
			ID:          c.id,
			ContentType: models.ContentTypePost,
			PublishedAt: c.publishedAt,
			Stats:       models.EngagementStats{Likes: c.likes, Impressions: c.impressions},
		})
		if err != nil {
			t.Fatalf("Upsert(%s) failed: %v", c.id, err)
		}
	}

	got, err := s.Trending(context.Background(), 10)
	if err != nil {
		t.Fatalf("Trending() failed: %v", err)
	}
	want := []string{"hot", "cold", "dead"}
	if len(got) != len(want) {
		t.Fatalf("Trending() returned %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Trending()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Within the TTL the cached set is served even after data changes.
	if err := s.Upsert(models.ContentItem{
		ID:          "newcomer",
		ContentType: models.ContentTypeReel,
		PublishedAt: base.Add(5 * time.Minute),
		Stats:       models.EngagementStats{Shares: 100, Impressions: 100},
	}); err != nil {
		t.Fatalf("Upsert(newcomer) failed: %v", err)
	}
	got, _ = s.Trending(context.Background(), 10)
	if len(got) != 3 {
		t.Errorf("Trending() within TTL returned %d ids, want cached 3", len(got))
	}

	// Past the TTL the set is recomputed and the newcomer appears first.
	s.now = func() time.Time { return base.Add(6 * time.Minute) }
	got, _ = s.Trending(context.Background(), 10)
	if len(got) != 4 || got[0] != "newcomer" {
		t.Errorf("Trending() after TTL = %v, want newcomer first of 4", got)
	}
}

func TestTrendingInvalidCount(t *testing.T) {
	s := testStore(t)
	if _, err := s.Trending(context.Background(), 0); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Trending(0) error = %v, want ErrInvalidArgument", err)
	}
}
