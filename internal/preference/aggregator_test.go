// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package preference

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/models"
)

func testConfig() config.PreferenceConfig {
	return config.PreferenceConfig{
		ConfidenceHalfCount:    20,
		InterestHalfLife:       168 * time.Hour,
		MaxInterests:           64,
		DecaySweepInterval:     time.Hour,
		StyleMinEvents:         10,
		StyleCreatorShareRatio: 0.25,
		StyleSocialRatio:       0.35,
		StyleActiveRatio:       0.30,
		PeakHours:              3,
	}
}

func testAggregator(t *testing.T) *Aggregator {
	t.Helper()
	return NewAggregator(testConfig())
}

func TestRecordEventValidation(t *testing.T) {
	a := testAggregator(t)

	tests := []struct {
		name  string
		event models.ActivityEvent
	}{
		{name: "missing user id", event: models.ActivityEvent{EventType: models.EventView}},
		{name: "unknown event type", event: models.ActivityEvent{UserID: "u1", EventType: "poke"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.RecordEvent(tt.event); !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("RecordEvent() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestColdStartProfile(t *testing.T) {
	a := testAggregator(t)

	p := a.GetProfile("stranger")
	if p.Confidence != 0 {
		t.Errorf("cold-start confidence = %f, want 0", p.Confidence)
	}
	if p.EventCount != 0 {
		t.Errorf("cold-start event count = %d, want 0", p.EventCount)
	}
	for _, ct := range models.ContentTypes() {
		want := 1.0 / float64(len(models.ContentTypes()))
		if math.Abs(p.ContentTypeAffinity[ct]-want) > 1e-9 {
			t.Errorf("cold-start affinity[%s] = %f, want uniform %f", ct, p.ContentTypeAffinity[ct], want)
		}
	}
}

func TestAffinityShiftsTowardEngagedType(t *testing.T) {
	a := testAggregator(t)

	for i := 0; i < 10; i++ {
		err := a.RecordEvent(models.ActivityEvent{
			UserID:      "u1",
			ContentID:   "c1",
			EventType:   models.EventLike,
			ContentType: models.ContentTypeReel,
		})
		if err != nil {
			t.Fatalf("RecordEvent() failed: %v", err)
		}
	}

	p := a.GetProfile("u1")
	if p.ContentTypeAffinity[models.ContentTypeReel] <= p.ContentTypeAffinity[models.ContentTypePost] {
		t.Errorf("reel affinity %f should exceed post affinity %f after reel likes",
			p.ContentTypeAffinity[models.ContentTypeReel], p.ContentTypeAffinity[models.ContentTypePost])
	}

	var sum float64
	for _, w := range p.ContentTypeAffinity {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("affinity sum = %f, want 1.0", sum)
	}
}

func TestSkipReducesAffinity(t *testing.T) {
	a := testAggregator(t)

	before := a.GetProfile("u1").ContentTypeAffinity[models.ContentTypeStory]
	for i := 0; i < 5; i++ {
		err := a.RecordEvent(models.ActivityEvent{
			UserID:      "u1",
			ContentID:   "c1",
			EventType:   models.EventSkip,
			ContentType: models.ContentTypeStory,
		})
		if err != nil {
			t.Fatalf("RecordEvent() failed: %v", err)
		}
	}

	after := a.GetProfile("u1").ContentTypeAffinity[models.ContentTypeStory]
	if after >= before {
		t.Errorf("story affinity after skips = %f, want below initial %f", after, before)
	}
}

func TestInterestAccumulationAndHierarchy(t *testing.T) {
	a := testAggregator(t)

	// One share on #music vs one view on #sports: share is the stronger
	// signal on both weight and learning rate.
	events := []models.ActivityEvent{
		{UserID: "u1", ContentID: "c1", EventType: models.EventShare, ContentType: models.ContentTypePost, Tags: []string{"#Music"}},
		{UserID: "u1", ContentID: "c2", EventType: models.EventView, ContentType: models.ContentTypePost, Tags: []string{"sports"}},
	}
	for _, e := range events {
		if err := a.RecordEvent(e); err != nil {
			t.Fatalf("RecordEvent() failed: %v", err)
		}
	}

	p := a.GetProfile("u1")
	music, sports := p.InterestVector["music"], p.InterestVector["sports"]
	if music == 0 {
		t.Fatal("#Music tag should have normalized to music interest")
	}
	if music <= sports {
		t.Errorf("share-driven interest %f should exceed view-driven %f", music, sports)
	}
}

func TestInterestDecayBetweenEvents(t *testing.T) {
	a := testAggregator(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	err := a.RecordEvent(models.ActivityEvent{
		UserID:    "u1",
		ContentID: "c1",
		EventType: models.EventLike,
		Tags:      []string{"music"},
		Timestamp: base,
	})
	if err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	a.now = func() time.Time { return base }
	before := a.GetProfile("u1").InterestVector["music"]

	// One interest half-life of silence halves the weight at read time.
	a.now = func() time.Time { return base.Add(168 * time.Hour) }
	after := a.GetProfile("u1").InterestVector["music"]

	if math.Abs(after-before/2) > 1e-9 {
		t.Errorf("interest after one half-life = %f, want %f", after, before/2)
	}
}

func TestConfidenceGrowsWithVolume(t *testing.T) {
	a := testAggregator(t)

	prev := 0.0
	prevGain := math.Inf(1)
	for i := 0; i < 40; i++ {
		err := a.RecordEvent(models.ActivityEvent{
			UserID:    "u1",
			ContentID: "c1",
			EventType: models.EventView,
		})
		if err != nil {
			t.Fatalf("RecordEvent() failed: %v", err)
		}
		got := a.GetProfile("u1").Confidence
		if got <= prev {
			t.Fatalf("confidence not increasing at event %d: %f <= %f", i+1, got, prev)
		}
		// Each event must add less confidence than the one before it.
		if gain := got - prev; gain >= prevGain {
			t.Fatalf("confidence gain not diminishing at event %d: %f >= %f", i+1, gain, prevGain)
		} else {
			prevGain = gain
		}
		prev = got
	}

	// 20 events is the configured half-count.
	if got := prev; got <= 0.5 || got >= 1 {
		t.Errorf("confidence after 40 events = %f, want in (0.5, 1)", got)
	}
}

func TestInterestVectorCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxInterests = 3
	a := NewAggregator(cfg)

	tags := []string{"a", "b", "c", "d", "e"}
	for _, tag := range tags {
		err := a.RecordEvent(models.ActivityEvent{
			UserID:    "u1",
			ContentID: "c1",
			EventType: models.EventShare,
			Tags:      []string{tag},
		})
		if err != nil {
			t.Fatalf("RecordEvent() failed: %v", err)
		}
	}

	p := a.GetProfile("u1")
	if len(p.InterestVector) != 3 {
		t.Errorf("interest vector size = %d, want capped at 3", len(p.InterestVector))
	}
}

func TestDecaySweep(t *testing.T) {
	a := testAggregator(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	err := a.RecordEvent(models.ActivityEvent{
		UserID:    "u1",
		ContentID: "c1",
		EventType: models.EventLike,
		Tags:      []string{"music"},
		Timestamp: base,
	})
	if err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}

	a.now = func() time.Time { return base.Add(168 * time.Hour) }
	if err := a.DecaySweep(context.Background()); err != nil {
		t.Fatalf("DecaySweep() failed: %v", err)
	}

	// The stored weight itself halved.
	sh := a.shardFor("u1")
	sh.mu.RLock()
	stored := sh.profiles["u1"].InterestVector["music"]
	sh.mu.RUnlock()

	if stored >= models.EventLike.Weight()*models.EventLike.LearningRate() {
		t.Errorf("stored interest after sweep = %f, want decayed below initial", stored)
	}
}

func TestDecaySweepDoesNotCompound(t *testing.T) {
	a := testAggregator(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	err := a.RecordEvent(models.ActivityEvent{
		UserID:    "u1",
		ContentID: "c1",
		EventType: models.EventLike,
		Tags:      []string{"music"},
		Timestamp: base,
	})
	if err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}
	initial := models.EventLike.Weight() * models.EventLike.LearningRate()

	// Two sweeps across one half-life must decay the weight exactly once:
	// each sweep only covers the window since the previous one.
	a.now = func() time.Time { return base.Add(84 * time.Hour) }
	if err := a.DecaySweep(context.Background()); err != nil {
		t.Fatalf("DecaySweep() failed: %v", err)
	}
	a.now = func() time.Time { return base.Add(168 * time.Hour) }
	if err := a.DecaySweep(context.Background()); err != nil {
		t.Fatalf("DecaySweep() failed: %v", err)
	}

	got := a.GetProfile("u1").InterestVector["music"]
	if math.Abs(got-initial/2) > 1e-9 {
		t.Errorf("interest after two sweeps over one half-life = %f, want %f", got, initial/2)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "hashtag stripped", in: "#Music", want: "music"},
		{name: "whitespace trimmed", in: "  sports  ", want: "sports"},
		{name: "already canonical", in: "travel", want: "travel"},
		{name: "hashtag only", in: "#", want: ""},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTag(tt.in); got != tt.want {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
