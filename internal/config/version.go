// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package config

import (
	"fmt"
	"hash/fnv"
)

// EngineVersion is the scoring and moderation engine release version.
// Bumped when scoring formulas or moderation heuristics change.
const EngineVersion = "2.1.0"

// ModelVersion returns the version string attached to every scored
// response: the engine release plus a fingerprint of the scoring-relevant
// configuration, so two deployments with different weights or thresholds
// are distinguishable in downstream logs.
//
//	2.1.0+c39f2a1b
func (c *Config) ModelVersion() string {
	h := fnv.New32a()

	fmt.Fprintf(h, "w=%g,%g,%g,%g;",
		c.Ranking.WeightEngagement,
		c.Ranking.WeightFreshness,
		c.Ranking.WeightAffinity,
		c.Ranking.WeightInterest)
	fmt.Fprintf(h, "fresh=%s;interest=%s;",
		c.Signals.FreshnessHalfLife,
		c.Preference.InterestHalfLife)
	fmt.Fprintf(h, "mod=%g,%g",
		c.Moderation.FlagThreshold,
		c.Moderation.RejectThreshold)

	return fmt.Sprintf("%s+%08x", EngineVersion, h.Sum32())
}
