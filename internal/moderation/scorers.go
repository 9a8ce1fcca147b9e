// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package moderation

import (
	"strings"
	"unicode"

	"github.com/powerstream/rankd/internal/scoring"
)

// Category names reported in moderation verdicts.
const (
	CategorySpam     = "spam"
	CategoryHate     = "hate"
	CategoryViolence = "violence"
	CategoryAdult    = "adult"
)

// CategoryScorer scores one moderation category for a piece of text.
// Scores are deterministic and normalized to [0, 1]. Implementations
// must be safe for concurrent use.
type CategoryScorer interface {
	// Category returns the category name this scorer reports under.
	Category() string

	// Score returns the category risk for the text.
	Score(text string) float64
}

// DefaultScorers returns the built-in heuristic scorer set, one per
// category. A deployment wanting an external classifier swaps these out
// behind the same interface.
func DefaultScorers() []CategoryScorer {
	return []CategoryScorer{
		spamScorer{},
		newTermScorer(CategoryHate, map[string]float64{
			"hate":     0.45,
			"racist":   0.75,
			"bigot":    0.70,
			"nazi":     0.80,
			"slur":     0.60,
			"subhuman": 0.85,
		}),
		newTermScorer(CategoryViolence, map[string]float64{
			"kill":      0.70,
			"murder":    0.75,
			"shoot":     0.60,
			"stab":      0.65,
			"assault":   0.55,
			"bomb":      0.75,
			"massacre":  0.85,
			"behead":    0.90,
			"gun":       0.35,
			"knife":     0.30,
			"violence":  0.40,
			"threaten":  0.55,
			"beat":      0.30,
		}),
		newTermScorer(CategoryAdult, map[string]float64{
			"nude":     0.60,
			"nudes":    0.65,
			"nsfw":     0.70,
			"porn":     0.85,
			"explicit": 0.50,
			"xxx":      0.75,
			"onlyfans": 0.55,
		}),
	}
}

// termScorer scores a category from a weighted term list: the score is
// the severity of the worst matched term, bumped for each additional
// distinct match.
type termScorer struct {
	category string
	terms    map[string]float64
}

func newTermScorer(category string, terms map[string]float64) termScorer {
	return termScorer{category: category, terms: terms}
}

func (s termScorer) Category() string { return s.category }

func (s termScorer) Score(text string) float64 {
	var worst float64
	matches := 0

	for _, token := range tokenize(text) {
		severity, ok := s.terms[token]
		if !ok {
			continue
		}
		matches++
		if severity > worst {
			worst = severity
		}
	}
	if matches == 0 {
		return 0
	}

	// Each distinct hit beyond the first compounds the risk.
	return scoring.Clamp01(worst + 0.08*float64(matches-1))
}

// spamScorer scores promotional and manipulative text from structural
// features: link density, shouting, exclamation runs, and stock promo
// phrases.
type spamScorer struct{}

func (spamScorer) Category() string { return CategorySpam }

var promoPhrases = []string{
	"click here",
	"buy now",
	"limited offer",
	"act now",
	"free money",
	"100% free",
	"winner",
	"dm me",
	"follow back",
	"crypto giveaway",
	"guaranteed",
}

func (spamScorer) Score(text string) float64 {
	lower := strings.ToLower(text)
	var score float64

	// Links: one is normal, a pile is not.
	links := strings.Count(lower, "http://") + strings.Count(lower, "https://")
	if links > 1 {
		score += 0.25 * float64(links-1)
	}

	for _, phrase := range promoPhrases {
		if strings.Contains(lower, phrase) {
			score += 0.30
		}
	}

	// Shouting: mostly-uppercase text above a trivial length.
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 12 && float64(upper)/float64(letters) > 0.7 {
		score += 0.30
	}

	if strings.Contains(text, "!!!") {
		score += 0.15
	}

	return scoring.Clamp01(score)
}

// tokenize splits text into lowercase word tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
