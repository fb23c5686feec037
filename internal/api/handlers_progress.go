// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/models"
)

// GetProgress handles GET /api/v1/progress: the locked team's full progress
// map.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	teamID := lock.TeamIDFromContext(r.Context())

	progress, err := h.store.GetProgress(r.Context(), teamID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load progress", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, progress)
}

// PutProgress handles PUT /api/v1/progress: replaces the stored entries for
// every location present in the request body.
func (h *Handler) PutProgress(w http.ResponseWriter, r *http.Request) {
	teamID := lock.TeamIDFromContext(r.Context())

	var req ProgressPutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidationError, "invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	if err := h.store.ReplaceProgress(r.Context(), teamID, req.Progress); err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to save progress", err)
		return
	}

	ctxLogger := logging.Ctx(r.Context())
	ctxLogger.Info().
		Str("team_id", teamID).
		Int("locations", len(req.Progress)).
		Msg("Progress replaced")

	progress, err := h.store.GetProgress(r.Context(), teamID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to reload progress", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, progress)
}

// PatchProgress handles PATCH /api/v1/progress/{locationId}: partial update
// of one location's entry. Absent fields keep their stored values.
func (h *Handler) PatchProgress(w http.ResponseWriter, r *http.Request) {
	teamID := lock.TeamIDFromContext(r.Context())
	locationID := chi.URLParam(r, "locationId")
	if locationID == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidationError, "locationId is required", nil)
		return
	}

	var req ProgressPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidationError, "invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	updated, err := h.store.PatchProgress(r.Context(), teamID, locationID, models.ProgressUpdate{
		Done:          req.Done,
		RevealedHints: req.RevealedHints,
		CompletedAt:   req.CompletedAt,
		PhotoURL:      req.PhotoURL,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to update progress", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, updated)
}
