// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package preference implements the preference aggregator: the single
// writer of user profiles. Activity events fold into per-user state as
// exponentially weighted moving averages, interests decay with a
// configurable inactivity half-life, and profile confidence grows
// asymptotically with event volume.
//
// Profiles are sharded across independent locks so concurrent events for
// different users never contend.
package preference

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/scoring"
)

// shardCount is the number of independent profile shards. Power of two.
const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	profiles map[string]*models.UserProfile
}

// Aggregator folds activity events into user profiles.
// All methods are safe for concurrent use.
type Aggregator struct {
	shards [shardCount]*shard
	cfg    config.PreferenceConfig
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewAggregator creates an empty aggregator.
func NewAggregator(cfg config.PreferenceConfig) *Aggregator {
	a := &Aggregator{
		cfg:    cfg,
		logger: logging.With().Str("component", "preference").Logger(),
		now:    time.Now,
	}
	for i := range a.shards {
		a.shards[i] = &shard{profiles: make(map[string]*models.UserProfile)}
	}
	return a
}

// shardFor maps a user ID to its shard.
func (a *Aggregator) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return a.shards[h.Sum32()&(shardCount-1)]
}

// RecordEvent folds one activity event into the user's profile, creating
// a cold-start profile on first sight. Events without timestamps apply at
// the current time; stale timestamps never roll the profile clock back.
func (a *Aggregator) RecordEvent(event models.ActivityEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("%w: user id is required", models.ErrInvalidArgument)
	}
	if !event.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", models.ErrInvalidArgument, event.EventType)
	}

	at := event.Timestamp
	if at.IsZero() {
		at = a.now()
	}

	sh := a.shardFor(event.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	profile, ok := sh.profiles[event.UserID]
	if !ok {
		profile = coldStartProfile(event.UserID)
		sh.profiles[event.UserID] = profile
		metrics.UserProfiles.Inc()
	}

	a.decayLocked(profile, at)
	a.applyEventLocked(profile, event, at)

	metrics.EventsProcessed.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// applyEventLocked mutates the profile for one event. Caller holds the
// shard write lock and has already applied lazy decay.
func (a *Aggregator) applyEventLocked(profile *models.UserProfile, event models.ActivityEvent, at time.Time) {
	alpha := event.EventType.LearningRate()

	// Skips pull affinity and interests toward zero; everything else
	// pulls toward full weight.
	target := 1.0
	if event.EventType == models.EventSkip {
		target = 0.0
	}

	// Content type affinity: EWMA toward the target for the event's
	// type, passive decay for the rest, then renormalize to sum 1.
	if event.ContentType.Valid() {
		for _, ct := range models.ContentTypes() {
			old := profile.ContentTypeAffinity[ct]
			if ct == event.ContentType {
				profile.ContentTypeAffinity[ct] = old*(1-alpha) + target*alpha
			} else {
				profile.ContentTypeAffinity[ct] = old * (1 - alpha)
			}
		}
		normalizeAffinity(profile.ContentTypeAffinity)
	}

	// Interests: EWMA toward the event weight per tag.
	weight := event.EventType.Weight() * target
	for _, raw := range event.Tags {
		tag := NormalizeTag(raw)
		if tag == "" {
			continue
		}
		old := profile.InterestVector[tag]
		profile.InterestVector[tag] = scoring.Clamp01(old*(1-alpha) + weight*alpha)
	}
	a.evictWeakestLocked(profile)

	profile.ActiveHourHistogram[at.Hour()]++
	profile.EventCount++
	profile.EventTypeCounts[event.EventType]++
	profile.Confidence = scoring.AsymptoticConfidence(profile.EventCount, a.cfg.ConfidenceHalfCount)

	if at.After(profile.LastUpdatedAt) {
		profile.LastUpdatedAt = at
	}
}

// decayLocked applies the lazy inactivity decay since the profile's last
// update. Interests and per-type counts halve every InterestHalfLife of
// silence. The profile clock advances to now once the decay is applied,
// so the same elapsed window is never decayed twice. Caller holds the
// shard write lock.
func (a *Aggregator) decayLocked(profile *models.UserProfile, now time.Time) {
	if profile.LastUpdatedAt.IsZero() {
		return
	}
	factor := scoring.HalfLifeDecay(now.Sub(profile.LastUpdatedAt), a.cfg.InterestHalfLife)
	if factor >= 1 {
		return
	}

	for tag, w := range profile.InterestVector {
		decayed := w * factor
		if decayed < 1e-4 {
			delete(profile.InterestVector, tag)
			continue
		}
		profile.InterestVector[tag] = decayed
	}
	for et, c := range profile.EventTypeCounts {
		profile.EventTypeCounts[et] = c * factor
	}
	profile.LastUpdatedAt = now
}

// evictWeakestLocked trims the interest vector to the configured cap,
// dropping the weakest entries first.
func (a *Aggregator) evictWeakestLocked(profile *models.UserProfile) {
	excess := len(profile.InterestVector) - a.cfg.MaxInterests
	if excess <= 0 {
		return
	}

	type entry struct {
		tag    string
		weight float64
	}
	entries := make([]entry, 0, len(profile.InterestVector))
	for tag, w := range profile.InterestVector {
		entries = append(entries, entry{tag: tag, weight: w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight < entries[j].weight
		}
		return entries[i].tag < entries[j].tag
	})
	for i := 0; i < excess; i++ {
		delete(profile.InterestVector, entries[i].tag)
	}
}

// GetProfile returns a decayed snapshot of the user's profile. Unknown
// users get the cold-start default (uniform affinity, zero confidence)
// rather than an error, so ranking always has something to blend.
func (a *Aggregator) GetProfile(userID string) *models.UserProfile {
	sh := a.shardFor(userID)
	sh.mu.RLock()
	profile, ok := sh.profiles[userID]
	if !ok {
		sh.mu.RUnlock()
		return coldStartProfile(userID)
	}
	snapshot := profile.Clone()
	sh.mu.RUnlock()

	// Apply read-time decay to the snapshot only; the stored profile
	// decays lazily on its next write.
	if snapshot.LastUpdatedAt.IsZero() {
		return snapshot
	}
	now := a.now()
	factor := scoring.HalfLifeDecay(now.Sub(snapshot.LastUpdatedAt), a.cfg.InterestHalfLife)
	if factor < 1 {
		for tag, w := range snapshot.InterestVector {
			snapshot.InterestVector[tag] = w * factor
		}
		for et, c := range snapshot.EventTypeCounts {
			snapshot.EventTypeCounts[et] = c * factor
		}
		snapshot.Confidence *= factor
	}
	return snapshot
}

// ProfileCount returns the number of live profiles.
func (a *Aggregator) ProfileCount() int {
	total := 0
	for _, sh := range a.shards {
		sh.mu.RLock()
		total += len(sh.profiles)
		sh.mu.RUnlock()
	}
	return total
}

// DecaySweep applies inactivity decay to every profile in place. Run
// periodically so idle profiles do not hold stale interest weight between
// events. Respects ctx cancellation between shards.
func (a *Aggregator) DecaySweep(ctx context.Context) error {
	now := a.now()
	swept := 0

	for _, sh := range a.shards {
		if err := ctx.Err(); err != nil {
			return err
		}
		sh.mu.Lock()
		for _, profile := range sh.profiles {
			a.decayLocked(profile, now)
			swept++
		}
		sh.mu.Unlock()
	}

	a.logger.Debug().Int("profiles", swept).Msg("decay sweep complete")
	return nil
}

// coldStartProfile builds the default profile for an unseen user:
// uniform content-type affinity and zero confidence.
func coldStartProfile(userID string) *models.UserProfile {
	types := models.ContentTypes()
	affinity := make(map[models.ContentType]float64, len(types))
	for _, ct := range types {
		affinity[ct] = 1.0 / float64(len(types))
	}
	return &models.UserProfile{
		UserID:              userID,
		ContentTypeAffinity: affinity,
		InterestVector:      make(map[string]float64),
		EventTypeCounts:     make(map[models.EventType]float64),
	}
}

// normalizeAffinity rescales affinity weights to sum to 1. A degenerate
// all-zero map resets to uniform.
func normalizeAffinity(affinity map[models.ContentType]float64) {
	var sum float64
	for _, w := range affinity {
		sum += w
	}
	if sum <= 0 {
		for ct := range affinity {
			affinity[ct] = 1.0 / float64(len(affinity))
		}
		return
	}
	for ct, w := range affinity {
		affinity[ct] = w / sum
	}
}

// NormalizeTag canonicalizes an interest tag: lowercased, trimmed, with
// any leading '#' stripped. Returns "" for tags that normalize away.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(strings.ToLower(tag))
	tag = strings.TrimPrefix(tag, "#")
	return strings.TrimSpace(tag)
}
