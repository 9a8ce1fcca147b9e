// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package ranking implements the ranking pipeline: candidate sourcing,
// parallel signal and profile fetch, weighted score blending, and
// deterministic ordering.
//
// Signal store reads go through a circuit breaker so a degraded store
// surfaces as a fast "unavailable" instead of piling up timed-out
// requests. Every response carries the model version so scores can be
// traced to the scoring configuration that produced them.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/preference"
	"github.com/powerstream/rankd/internal/scoring"
	"github.com/powerstream/rankd/internal/signals"
	"github.com/powerstream/rankd/internal/simindex"
)

// Signal names used in blend terms and raw signal maps.
const (
	signalEngagement = "engagement"
	signalFreshness  = "freshness"
	signalAffinity   = "affinity"
	signalInterest   = "interest"
)

// Pipeline ranks candidate content for users.
// Safe for concurrent use.
type Pipeline struct {
	store   *signals.Store
	prefs   *preference.Aggregator
	index   *simindex.Index
	breaker *gobreaker.CircuitBreaker[[]models.Signals]

	cfg          config.RankingConfig
	modelVersion string
	logger       zerolog.Logger
}

// New creates a ranking pipeline over the given store, aggregator, and
// similarity index.
func New(cfg config.RankingConfig, store *signals.Store, prefs *preference.Aggregator,
	index *simindex.Index, modelVersion string) *Pipeline {
	logger := logging.With().Str("component", "ranking").Logger()

	breaker := gobreaker.NewCircuitBreaker[[]models.Signals](gobreaker.Settings{
		Name:    "signal-reads",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.BreakerState.Set(breakerStateValue(to))
		},
	})

	return &Pipeline{
		store:        store,
		prefs:        prefs,
		index:        index,
		breaker:      breaker,
		cfg:          cfg,
		modelVersion: modelVersion,
		logger:       logger,
	}
}

// ModelVersion returns the version string attached to scored responses.
func (p *Pipeline) ModelVersion() string {
	return p.modelVersion
}

// Rank scores candidates for a user and returns them ordered by blended
// score, descending, ties broken by content ID. An empty candidate set
// falls back to the trending pool. limit <= 0 takes the configured
// default; limits above the maximum are clamped, negative offsets clamp
// to 0. An offset past the end of the result set yields an empty page.
func (p *Pipeline) Rank(ctx context.Context, userID string, candidateIDs []string,
	limit, offset int) ([]models.ScoreRecord, error) {
	if userID == "" {
		metrics.RankRequests.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidArgument)
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = p.cfg.DefaultLimit
	}
	if limit > p.cfg.MaxLimit {
		limit = p.cfg.MaxLimit
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	if len(candidateIDs) == 0 {
		trending, err := p.store.Trending(ctx, offset+limit)
		if err != nil {
			metrics.RankRequests.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("trending fallback failed: %w", err)
		}
		candidateIDs = trending
	}
	metrics.RankCandidates.Observe(float64(len(candidateIDs)))

	var (
		sigs    []models.Signals
		profile *models.UserProfile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sigs, err = p.fetchSignals(gctx, candidateIDs)
		return err
	})
	g.Go(func() error {
		profile = p.prefs.GetProfile(userID)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		outcome := "unavailable"
		if !errors.Is(err, models.ErrUnavailable) {
			outcome = "error"
		}
		metrics.RankRequests.WithLabelValues(outcome).Inc()
		return nil, err
	}

	records := make([]models.ScoreRecord, 0, len(sigs))
	for i := range sigs {
		records = append(records, p.score(&sigs[i], profile))
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].BlendedScore != records[j].BlendedScore {
			return records[i].BlendedScore > records[j].BlendedScore
		}
		return records[i].ContentID < records[j].ContentID
	})

	metrics.RankRequests.WithLabelValues("ok").Inc()
	return page(records, limit, offset), nil
}

// Similar returns up to k items most similar to the given content.
// k <= 0 takes the configured default; values above the similar-item
// maximum are clamped. Unknown content returns models.ErrNotFound.
func (p *Pipeline) Similar(_ context.Context, contentID string, k int) ([]simindex.Result, error) {
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", models.ErrInvalidArgument)
	}
	if k <= 0 {
		k = p.cfg.DefaultLimit
	}
	if k > p.cfg.MaxSimilar {
		k = p.cfg.MaxSimilar
	}
	return p.index.QueryByID(contentID, k)
}

// fetchSignals reads candidate signal bundles through the circuit
// breaker. An open breaker or an expired context classifies as
// models.ErrUnavailable.
func (p *Pipeline) fetchSignals(ctx context.Context, ids []string) ([]models.Signals, error) {
	sigs, err := p.breaker.Execute(func() ([]models.Signals, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return p.store.GetBatch(ids), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("signal store circuit open: %w", models.ErrUnavailable)
		}
		return nil, fmt.Errorf("signal read failed (%v): %w", err, models.ErrUnavailable)
	}
	return sigs, nil
}

// score blends one candidate's signals against the user profile.
func (p *Pipeline) score(sig *models.Signals, profile *models.UserProfile) models.ScoreRecord {
	affinity := profile.ContentTypeAffinity[sig.ContentType]
	interest := scoring.InterestOverlap(sig.Tags, profile.InterestVector)

	terms := []scoring.WeightedTerm{
		{Name: signalEngagement, Weight: p.cfg.WeightEngagement, Value: sig.Engagement},
		{Name: signalFreshness, Weight: p.cfg.WeightFreshness, Value: sig.Freshness},
		{Name: signalAffinity, Weight: p.cfg.WeightAffinity, Value: affinity},
		{Name: signalInterest, Weight: p.cfg.WeightInterest, Value: interest},
	}
	score, reason := scoring.Blend(terms)

	return models.ScoreRecord{
		ContentID: sig.ContentID,
		RawSignals: map[string]float64{
			signalEngagement: sig.Engagement,
			signalFreshness:  sig.Freshness,
			signalAffinity:   affinity,
			signalInterest:   interest,
		},
		BlendedScore: score,
		Reason:       reason,
	}
}

// page slices the ordered records to the requested window.
func page(records []models.ScoreRecord, limit, offset int) []models.ScoreRecord {
	if offset >= len(records) {
		return []models.ScoreRecord{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}

// breakerStateValue maps a breaker state to its gauge value.
func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
