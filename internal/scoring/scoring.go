// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package scoring provides the shared scoring algebra: clamping, exponential
// half-life decay, cosine similarity, and weighted blending. Both the ranking
// and moderation pipelines build on these primitives so the two paths share a
// single notion of "score".
package scoring

import (
	"math"
	"time"
)

// Clamp01 clips v to the [0, 1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HalfLifeDecay returns 0.5^(age/halfLife), the canonical freshness and
// interest decay curve. Returns 1 for non-positive ages (future timestamps
// from clock drift never boost above 1) and 0 for a non-positive half-life.
func HalfLifeDecay(age, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 0
	}
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, age.Seconds()/halfLife.Seconds())
}

// CosineSimilarity computes the cosine of the angle between a and b,
// mapped from [-1, 1] into [0, 1] so it composes with the rest of the
// scoring algebra. Returns 0 for mismatched dimensions or zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return Clamp01((cos + 1) / 2)
}

// WeightedTerm is a named, weighted, normalized scoring component.
type WeightedTerm struct {
	// Name identifies the signal ("engagement", "freshness", ...).
	Name string

	// Weight is the configured blend weight.
	Weight float64

	// Value is the normalized signal value in [0, 1].
	Value float64
}

// Blend combines weighted terms into a single score in [0, 1] and returns
// the name of the dominant (largest weighted contribution) term. Weights are
// normalized over the provided terms so dropping a signal renormalizes the
// blend instead of deflating it. An empty or zero-weight term set blends to 0
// with an empty reason.
func Blend(terms []WeightedTerm) (score float64, reason string) {
	var weightSum float64
	for _, t := range terms {
		if t.Weight > 0 {
			weightSum += t.Weight
		}
	}
	if weightSum == 0 {
		return 0, ""
	}

	var best float64
	for _, t := range terms {
		if t.Weight <= 0 {
			continue
		}
		contribution := (t.Weight / weightSum) * Clamp01(t.Value)
		score += contribution
		if reason == "" || contribution > best {
			best = contribution
			reason = t.Name
		}
	}

	return Clamp01(score), reason
}

// InterestOverlap scores how well an item's tags match a user's interest
// vector: the mean interest weight over the item's tags, 0 when either side
// is empty. Already normalized to [0, 1] because interest weights are.
func InterestOverlap(tags []string, interests map[string]float64) float64 {
	if len(tags) == 0 || len(interests) == 0 {
		return 0
	}

	var sum float64
	for _, tag := range tags {
		sum += interests[tag]
	}
	return Clamp01(sum / float64(len(tags)))
}

// AsymptoticConfidence maps an observation count to [0, 1) with strictly
// diminishing marginal gains: 1 - 0.5^(n/halfCount). halfCount observations
// yield 0.5 confidence; confidence approaches but never reaches 1.
func AsymptoticConfidence(n int64, halfCount float64) float64 {
	if n <= 0 || halfCount <= 0 {
		return 0
	}
	return 1 - math.Pow(0.5, float64(n)/halfCount)
}
