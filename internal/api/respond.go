// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/models"
)

// errorResponse is the error envelope for all non-2xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Err(err).Msg("failed to encode response")
	}
}

// writeError maps a domain error onto its HTTP status and writes the
// error envelope. The taxonomy mapping:
//
//	ErrInvalidArgument -> 400
//	ErrNotFound        -> 404
//	ErrUnavailable     -> 503
//	anything else      -> 500
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logging.Err(err).Msg("internal error serving request")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON decodes a request body into dst, returning an
// ErrInvalidArgument-classified error on malformed input.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", models.ErrInvalidArgument)
	}
	return nil
}
