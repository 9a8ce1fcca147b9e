// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package preference

import (
	"sort"

	"github.com/powerstream/rankd/internal/models"
)

// Summary is the read-model view of a user's preferences served by the
// API: affinity, classified engagement style, peak activity hours, the
// interest vector, and profile confidence.
type Summary struct {
	// ContentTypes maps content type to affinity weight (sums to 1).
	ContentTypes map[models.ContentType]float64 `json:"content_types"`

	// EngagementStyle labels the user's dominant engagement pattern.
	EngagementStyle models.EngagementStyle `json:"engagement_style"`

	// PeakHours lists the user's most active hours of day, strongest first.
	PeakHours []int `json:"peak_hours"`

	// Interests maps interest tag to decayed weight.
	Interests map[string]float64 `json:"interests"`

	// Confidence is the profile confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Summarize builds the preference summary for a user. Unknown users get
// the cold-start summary: uniform affinity, lurker style, no peak hours.
func (a *Aggregator) Summarize(userID string) Summary {
	profile := a.GetProfile(userID)

	return Summary{
		ContentTypes:    profile.ContentTypeAffinity,
		EngagementStyle: a.classifyStyle(profile),
		PeakHours:       peakHours(profile.ActiveHourHistogram, a.cfg.PeakHours),
		Interests:       profile.InterestVector,
		Confidence:      profile.Confidence,
	}
}

// classifyStyle labels the user's engagement pattern from decayed
// per-type event counts. Checked in order of specificity: creators are
// detected before social butterflies, which are detected before plain
// active engagers.
func (a *Aggregator) classifyStyle(profile *models.UserProfile) models.EngagementStyle {
	if profile.EventCount < a.cfg.StyleMinEvents {
		return models.StyleLurker
	}

	var total float64
	for _, c := range profile.EventTypeCounts {
		total += c
	}
	if total <= 0 {
		return models.StyleLurker
	}

	shares := profile.EventTypeCounts[models.EventShare]
	comments := profile.EventTypeCounts[models.EventComment]
	likes := profile.EventTypeCounts[models.EventLike]

	switch {
	case shares/total >= a.cfg.StyleCreatorShareRatio:
		return models.StyleCreator
	case (shares+comments)/total >= a.cfg.StyleSocialRatio:
		return models.StyleSocialButterfly
	case (shares+comments+likes)/total >= a.cfg.StyleActiveRatio:
		return models.StyleActiveEngager
	default:
		return models.StylePassiveConsumer
	}
}

// peakHours returns the top-n most active hours of day, strongest first,
// ties broken by earlier hour. Hours with no activity never qualify.
func peakHours(histogram [24]int64, n int) []int {
	type hourCount struct {
		hour  int
		count int64
	}

	active := make([]hourCount, 0, 24)
	for hour, count := range histogram {
		if count > 0 {
			active = append(active, hourCount{hour: hour, count: count})
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].count != active[j].count {
			return active[i].count > active[j].count
		}
		return active[i].hour < active[j].hour
	})

	if n > len(active) {
		n = len(active)
	}
	hours := make([]int, n)
	for i := 0; i < n; i++ {
		hours[i] = active[i].hour
	}
	return hours
}
