// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/simindex"
)

// rankRequest is the POST /api/v1/rank payload.
type rankRequest struct {
	UserID       string   `json:"user_id" validate:"required"`
	CandidateIDs []string `json:"candidate_ids,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
}

// rankResponse carries ordered score records plus the model version.
type rankResponse struct {
	Results      []models.ScoreRecord `json:"results"`
	ModelVersion string               `json:"model_version"`
}

func (router *Router) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := router.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}

	records, err := router.ranker.Rank(r.Context(), req.UserID, req.CandidateIDs, req.Limit, req.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rankResponse{
		Results:      records,
		ModelVersion: router.ranker.ModelVersion(),
	})
}

// similarRequest is the POST /api/v1/similar payload.
type similarRequest struct {
	ContentID string `json:"content_id" validate:"required"`
	Limit     int    `json:"limit,omitempty"`
}

// similarResponse carries similarity hits plus the model version.
type similarResponse struct {
	Results      []simindex.Result `json:"results"`
	ModelVersion string            `json:"model_version"`
}

func (router *Router) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := router.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}

	results, err := router.ranker.Similar(r.Context(), req.ContentID, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, similarResponse{
		Results:      results,
		ModelVersion: router.ranker.ModelVersion(),
	})
}

// preferencesRequest is the POST /api/v1/user/preferences payload.
type preferencesRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (router *Router) handlePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := router.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}

	writeJSON(w, http.StatusOK, router.prefs.Summarize(req.UserID))
}

// moderateRequest is the POST /api/v1/moderate payload.
type moderateRequest struct {
	Text        string `json:"text" validate:"required"`
	ContentType string `json:"content_type,omitempty"`
}

// moderateResponse is the moderation verdict wire shape.
type moderateResponse struct {
	Safe         bool               `json:"safe"`
	Categories   map[string]float64 `json:"categories"`
	Action       string             `json:"action"`
	ModelVersion string             `json:"model_version"`
}

func (router *Router) handleModerate(w http.ResponseWriter, r *http.Request) {
	var req moderateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	verdict, err := router.moderator.Moderate(r.Context(), models.ContentType(req.ContentType), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, moderateResponse{
		Safe:         verdict.Safe(),
		Categories:   verdict.CategoryScores,
		Action:       string(verdict.Action),
		ModelVersion: verdict.ModelVersion,
	})
}

// activityRequest is the POST /api/v1/activity payload.
type activityRequest struct {
	UserID      string    `json:"user_id" validate:"required"`
	ContentID   string    `json:"content_id" validate:"required"`
	EventType   string    `json:"event_type" validate:"required"`
	ContentType string    `json:"content_type,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

func (router *Router) handleActivity(w http.ResponseWriter, r *http.Request) {
	if !router.ingestReady() {
		writeError(w, fmt.Errorf("%w: activity pipeline is still starting", models.ErrUnavailable))
		return
	}

	var req activityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := router.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}

	event := models.ActivityEvent{
		UserID:      req.UserID,
		ContentID:   req.ContentID,
		EventType:   models.EventType(req.EventType),
		ContentType: models.ContentType(req.ContentType),
		Tags:        req.Tags,
		Timestamp:   req.Timestamp,
	}
	if err := router.publisher.PublishActivity(event); err != nil {
		writeError(w, err)
		return
	}

	// Aggregation is asynchronous; the event is accepted, not applied.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// contentUpsertRequest is the PUT /api/v1/content/{id} payload.
type contentUpsertRequest struct {
	ContentType string                 `json:"content_type" validate:"required"`
	Embedding   []float64              `json:"embedding,omitempty"`
	PublishedAt time.Time              `json:"published_at,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Stats       models.EngagementStats `json:"stats,omitempty"`
}

func (router *Router) handleContentUpsert(w http.ResponseWriter, r *http.Request) {
	var req contentUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := router.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}

	item := models.ContentItem{
		ID:          chi.URLParam(r, "id"),
		ContentType: models.ContentType(req.ContentType),
		Embedding:   req.Embedding,
		PublishedAt: req.PublishedAt,
		Stats:       req.Stats,
		Tags:        req.Tags,
	}
	if err := router.store.Upsert(item); err != nil {
		writeError(w, err)
		return
	}

	// The stored copy carries the resolved publish time; reread it so the
	// index entry matches the store.
	stored, err := router.store.GetItem(item.ID)
	if err == nil {
		if err := router.index.Insert(stored); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "id": item.ID})
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status       string `json:"status"`
	ContentItems int    `json:"content_items"`
	UserProfiles int    `json:"user_profiles"`
	IndexVectors int    `json:"index_vectors"`
	ModelVersion string `json:"model_version"`
}

func (router *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		ContentItems: router.store.Len(),
		UserProfiles: router.prefs.ProfileCount(),
		IndexVectors: router.index.Len(),
		ModelVersion: router.ranker.ModelVersion(),
	})
}
