// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package models

import "errors"

// Error taxonomy shared by every component. Callers classify failures with
// errors.Is against these sentinels; components wrap them with context via
// fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound indicates an unknown content or user id. At the ranking
	// and profile layers unknown ids yield defaults, not failures; only
	// direct single-item lookups surface this.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a malformed request parameter, such as a
	// non-positive k or an embedding with the wrong dimension.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable indicates a store or index that is temporarily
	// unreachable. Callers fall back to degraded behavior or retry with
	// backoff; it never crashes a request path.
	ErrUnavailable = errors.New("unavailable")

	// ErrConfiguration indicates an invalid deployment configuration
	// (embedding dimension mismatch, missing category threshold). Fatal at
	// startup, never a per-request error.
	ErrConfiguration = errors.New("configuration error")
)
