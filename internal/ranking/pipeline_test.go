// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/preference"
	"github.com/powerstream/rankd/internal/signals"
	"github.com/powerstream/rankd/internal/simindex"
)

func testPipeline(t *testing.T) (*Pipeline, *signals.Store, *preference.Aggregator, *simindex.Index) {
	t.Helper()

	store := signals.NewStore(config.SignalsConfig{
		FreshnessHalfLife: 24 * time.Hour,
		NeutralEngagement: 0.5,
		TrendingSize:      100,
		TrendingTTL:       5 * time.Minute,
	}, 3)

	prefs := preference.NewAggregator(config.PreferenceConfig{
		ConfidenceHalfCount:    20,
		InterestHalfLife:       168 * time.Hour,
		MaxInterests:           64,
		DecaySweepInterval:     time.Hour,
		StyleMinEvents:         10,
		StyleCreatorShareRatio: 0.25,
		StyleSocialRatio:       0.35,
		StyleActiveRatio:       0.30,
		PeakHours:              3,
	})

	index := simindex.New(config.IndexConfig{EmbeddingDim: 3, RebuildInterval: time.Minute})

	pipeline := New(config.RankingConfig{
		WeightEngagement:        0.30,
		WeightFreshness:         0.25,
		WeightAffinity:          0.25,
		WeightInterest:          0.20,
		DefaultLimit:            20,
		MaxLimit:                100,
		MaxSimilar:              50,
		RequestTimeout:          2 * time.Second,
		BreakerFailureThreshold: 5,
		BreakerTimeout:          30 * time.Second,
	}, store, prefs, index, "2.1.0+test")

	return pipeline, store, prefs, index
}

func seedContent(t *testing.T, store *signals.Store, id string, ct models.ContentType,
	publishedAt time.Time, stats models.EngagementStats, tags ...string) {
	t.Helper()
	err := store.Upsert(models.ContentItem{
		ID:          id,
		ContentType: ct,
		PublishedAt: publishedAt,
		Stats:       stats,
		Tags:        tags,
	})
	if err != nil {
		t.Fatalf("Upsert(%s) failed: %v", id, err)
	}
}

func TestRankValidation(t *testing.T) {
	p, _, _, _ := testPipeline(t)
	ctx := context.Background()

	if _, err := p.Rank(ctx, "", nil, 10, 0); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Rank without user = %v, want ErrInvalidArgument", err)
	}
}

func TestRankClampsNegativeOffset(t *testing.T) {
	p, store, _, _ := testPipeline(t)
	seedContent(t, store, "only", models.ContentTypePost, time.Now(), models.EngagementStats{})

	// A negative offset clamps to 0 and serves the first page.
	got, err := p.Rank(context.Background(), "u1", []string{"only"}, 10, -1)
	if err != nil {
		t.Fatalf("Rank() with negative offset failed: %v", err)
	}
	if len(got) != 1 || got[0].ContentID != "only" {
		t.Errorf("Rank() with negative offset = %v, want the full first page", got)
	}
}

func TestRankOrdersByBlendedScore(t *testing.T) {
	p, store, _, _ := testPipeline(t)
	now := time.Now()

	// Identical freshness; engagement separates them.
	seedContent(t, store, "viral", models.ContentTypePost, now,
		models.EngagementStats{Likes: 90, Impressions: 100})
	seedContent(t, store, "quiet", models.ContentTypePost, now,
		models.EngagementStats{Likes: 5, Impressions: 100})

	got, err := p.Rank(context.Background(), "u1", []string{"quiet", "viral"}, 10, 0)
	if err != nil {
		t.Fatalf("Rank() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Rank() returned %d records, want 2", len(got))
	}
	if got[0].ContentID != "viral" {
		t.Errorf("top record = %s, want viral", got[0].ContentID)
	}
	if got[0].BlendedScore <= got[1].BlendedScore {
		t.Errorf("scores not descending: %f <= %f", got[0].BlendedScore, got[1].BlendedScore)
	}
	for _, r := range got {
		if r.BlendedScore < 0 || r.BlendedScore > 1 {
			t.Errorf("score %f outside [0, 1]", r.BlendedScore)
		}
		if r.Reason == "" {
			t.Errorf("record %s has empty reason", r.ContentID)
		}
		if len(r.RawSignals) != 4 {
			t.Errorf("record %s has %d raw signals, want 4", r.ContentID, len(r.RawSignals))
		}
	}
}

func TestRankPersonalization(t *testing.T) {
	p, store, prefs, _ := testPipeline(t)
	now := time.Now()

	// Same engagement and freshness; only the user's reel affinity and
	// music interest separate the two.
	seedContent(t, store, "reel-music", models.ContentTypeReel, now,
		models.EngagementStats{Likes: 10, Impressions: 100}, "music")
	seedContent(t, store, "post-plain", models.ContentTypePost, now,
		models.EngagementStats{Likes: 10, Impressions: 100})

	for i := 0; i < 10; i++ {
		err := prefs.RecordEvent(models.ActivityEvent{
			UserID:      "fan",
			ContentID:   "earlier-reel",
			EventType:   models.EventShare,
			ContentType: models.ContentTypeReel,
			Tags:        []string{"music"},
		})
		if err != nil {
			t.Fatalf("RecordEvent() failed: %v", err)
		}
	}

	got, err := p.Rank(context.Background(), "fan", []string{"post-plain", "reel-music"}, 10, 0)
	if err != nil {
		t.Fatalf("Rank() failed: %v", err)
	}
	if got[0].ContentID != "reel-music" {
		t.Errorf("top record for reel fan = %s, want reel-music", got[0].ContentID)
	}
}

func TestRankUnknownCandidatesOmitted(t *testing.T) {
	p, store, _, _ := testPipeline(t)
	seedContent(t, store, "real", models.ContentTypePost, time.Now(), models.EngagementStats{})

	got, err := p.Rank(context.Background(), "u1", []string{"real", "ghost"}, 10, 0)
	if err != nil {
		t.Fatalf("Rank() failed: %v", err)
	}
	if len(got) != 1 || got[0].ContentID != "real" {
		t.Errorf("Rank() = %v, want only the known candidate", got)
	}
}

func TestRankTrendingFallback(t *testing.T) {
	p, store, _, _ := testPipeline(t)
	now := time.Now()
	seedContent(t, store, "t1", models.ContentTypePost, now,
		models.EngagementStats{Likes: 50, Impressions: 100})
	seedContent(t, store, "t2", models.ContentTypeReel, now,
		models.EngagementStats{Likes: 20, Impressions: 100})

	got, err := p.Rank(context.Background(), "u1", nil, 10, 0)
	if err != nil {
		t.Fatalf("Rank() with empty candidates failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("trending fallback returned %d records, want 2", len(got))
	}
}

func TestRankPagination(t *testing.T) {
	p, store, _, _ := testPipeline(t)
	now := time.Now()

	ids := make([]string, 0, 5)
	for _, c := range []struct {
		id    string
		likes int64
	}{
		{"a", 50}, {"b", 40}, {"c", 30}, {"d", 20}, {"e", 10},
	} {
		seedContent(t, store, c.id, models.ContentTypePost, now,
			models.EngagementStats{Likes: c.likes, Impressions: 100})
		ids = append(ids, c.id)
	}

	pageTwo, err := p.Rank(context.Background(), "u1", ids, 2, 2)
	if err != nil {
		t.Fatalf("Rank() failed: %v", err)
	}
	if len(pageTwo) != 2 || pageTwo[0].ContentID != "c" || pageTwo[1].ContentID != "d" {
		t.Errorf("page 2 = %v, want [c d]", pageTwo)
	}

	// Offset past the end yields an empty page, not an error.
	empty, err := p.Rank(context.Background(), "u1", ids, 2, 50)
	if err != nil {
		t.Fatalf("Rank() with large offset failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("page past end = %v, want empty", empty)
	}
}

func TestRankNeverPadsResults(t *testing.T) {
	p, store, _, _ := testPipeline(t)
	now := time.Now()

	ids := []string{"v", "w", "x", "y", "z"}
	for _, id := range ids {
		seedContent(t, store, id, models.ContentTypePost, now, models.EngagementStats{})
	}

	got, err := p.Rank(context.Background(), "u1", ids, 20, 0)
	if err != nil {
		t.Fatalf("Rank() failed: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("Rank() returned %d records for %d candidates, want exactly %d",
			len(got), len(ids), len(ids))
	}

	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	seen := make(map[string]bool, len(got))
	for _, r := range got {
		if !known[r.ContentID] {
			t.Errorf("record %s not in the candidate set", r.ContentID)
		}
		if seen[r.ContentID] {
			t.Errorf("record %s returned twice", r.ContentID)
		}
		seen[r.ContentID] = true
	}
}

func TestRankLimitClamping(t *testing.T) {
	p, store, _, _ := testPipeline(t)
	now := time.Now()
	for i := 0; i < 30; i++ {
		seedContent(t, store, string(rune('a'+i)), models.ContentTypePost, now, models.EngagementStats{})
	}

	got, err := p.Rank(context.Background(), "u1", nil, 0, 0)
	if err != nil {
		t.Fatalf("Rank() failed: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("Rank() with limit 0 returned %d, want default 20", len(got))
	}
}

func TestSimilarDelegatesToIndex(t *testing.T) {
	p, _, _, index := testPipeline(t)

	items := []models.ContentItem{
		{ID: "seed", ContentType: models.ContentTypePost, Embedding: []float64{1, 0, 0}},
		{ID: "near", ContentType: models.ContentTypeReel, Embedding: []float64{0.9, 0.1, 0}},
	}
	for _, it := range items {
		if err := index.Insert(it); err != nil {
			t.Fatalf("Insert(%s) failed: %v", it.ID, err)
		}
	}

	got, err := p.Similar(context.Background(), "seed", 10)
	if err != nil {
		t.Fatalf("Similar() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "near" {
		t.Errorf("Similar() = %v, want [near]", got)
	}

	if _, err := p.Similar(context.Background(), "ghost", 10); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Similar(ghost) = %v, want ErrNotFound", err)
	}
	if _, err := p.Similar(context.Background(), "", 10); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Similar with empty id = %v, want ErrInvalidArgument", err)
	}
}
