// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package models defines the domain types shared by the signal store,
// preference aggregator, similarity index, ranking pipeline, and moderation
// pipeline, plus the error taxonomy all of them classify failures with.
//
// This package has no dependencies on other internal packages so every
// component can import it without cycles.
package models
