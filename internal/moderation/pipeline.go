// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package moderation implements the content moderation pipeline:
// per-category risk scoring and the threshold policy that turns scores
// into an approve / flag / reject action.
//
// Scoring is synchronous and deterministic. The scorer set is pluggable
// behind the CategoryScorer interface; the built-in scorers are cheap
// text heuristics.
package moderation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
)

// Pipeline scores text against every category and applies the threshold
// policy. Safe for concurrent use.
type Pipeline struct {
	scorers      []CategoryScorer
	cfg          config.ModerationConfig
	modelVersion string
	logger       zerolog.Logger
}

// New creates a moderation pipeline with the given scorer set. Pass
// DefaultScorers() for the built-in heuristics.
func New(cfg config.ModerationConfig, scorers []CategoryScorer, modelVersion string) *Pipeline {
	return &Pipeline{
		scorers:      scorers,
		cfg:          cfg,
		modelVersion: modelVersion,
		logger:       logging.With().Str("component", "moderation").Logger(),
	}
}

// Moderate scores the text and derives the action: reject when any
// category reaches its reject threshold, flag when any reaches its flag
// threshold, approve otherwise. Each category is judged against its own
// thresholds (per-category overrides, global defaults otherwise). Empty
// or oversized text is rejected as invalid input, not as a moderation
// verdict. contentType is informational and may be empty.
func (p *Pipeline) Moderate(ctx context.Context, contentType models.ContentType, text string) (models.ModerationVerdict, error) {
	if text == "" {
		return models.ModerationVerdict{}, fmt.Errorf("%w: text is required", models.ErrInvalidArgument)
	}
	if len(text) > p.cfg.MaxTextLength {
		return models.ModerationVerdict{}, fmt.Errorf("%w: text length %d exceeds maximum %d",
			models.ErrInvalidArgument, len(text), p.cfg.MaxTextLength)
	}
	if err := ctx.Err(); err != nil {
		return models.ModerationVerdict{}, err
	}

	scores := make(map[string]float64, len(p.scorers))
	action := models.ActionApprove
	var heldCategory string
	var heldScore float64
	for _, scorer := range p.scorers {
		category := scorer.Category()
		s := scorer.Score(text)
		scores[category] = s

		flag, reject := p.thresholds(category)
		categoryAction := models.ActionApprove
		switch {
		case s >= reject:
			categoryAction = models.ActionReject
		case s >= flag:
			categoryAction = models.ActionFlag
		}
		if severity(categoryAction) > severity(action) ||
			(categoryAction == action && action != models.ActionApprove && s > heldScore) {
			action = categoryAction
			heldCategory = category
			heldScore = s
		}
	}

	if action != models.ActionApprove {
		p.logger.Info().
			Str("action", string(action)).
			Str("category", heldCategory).
			Str("content_type", string(contentType)).
			Float64("score", heldScore).
			Msg("content held by moderation")
	}
	metrics.ModerationActions.WithLabelValues(string(action)).Inc()

	return models.ModerationVerdict{
		CategoryScores: scores,
		Action:         action,
		ModelVersion:   p.modelVersion,
	}, nil
}

// thresholds resolves the flag and reject thresholds for a category,
// falling back to the global defaults when no override is configured.
func (p *Pipeline) thresholds(category string) (flag, reject float64) {
	if t, ok := p.cfg.Categories[category]; ok {
		return t.Flag, t.Reject
	}
	return p.cfg.FlagThreshold, p.cfg.RejectThreshold
}

// severity orders actions for picking the worst per-category outcome.
func severity(a models.ModerationAction) int {
	switch a {
	case models.ActionReject:
		return 2
	case models.ActionFlag:
		return 1
	default:
		return 0
	}
}
