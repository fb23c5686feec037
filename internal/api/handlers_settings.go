// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"errors"
	"net/http"

	"github.com/questmap/questmap/internal/auth"
	"github.com/questmap/questmap/internal/cache"
	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/models"
	"github.com/questmap/questmap/internal/store"
)

// UpdateSettings handles PUT /api/v1/hunts/{orgId}/{huntId}/settings behind
// admin basic auth. The write is guarded by optimistic concurrency: the
// request carries the updatedAt from the caller's last read, and a stale
// value yields 409 so concurrent admin edits never silently overwrite each
// other.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	orgID, huntID := huntScope(r)

	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidationError, "invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	updated, err := h.store.UpdateSettings(r.Context(), &models.HuntSettings{
		OrganizationID: orgID,
		HuntID:         huntID,
		Config:         req.Config,
	}, req.ExpectedUpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			respondErrorDetails(w, r, http.StatusConflict, CodeConflict,
				"settings were modified by another request; re-read and retry",
				map[string]interface{}{"expectedUpdatedAt": req.ExpectedUpdatedAt}, nil)
		case errors.Is(err, store.ErrNotFound):
			respondError(w, r, http.StatusNotFound, CodeNotFound, "hunt settings not found", nil)
		default:
			respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to update settings", err)
		}
		return
	}

	// Invalidate the cached read copy so clients see the new config.
	if h.cache != nil {
		h.cache.Delete(cache.GenerateKey("settings", []string{orgID, huntID}))
	}

	ctxLogger := logging.Ctx(r.Context())
	ctxLogger.Info().
		Str("org_id", orgID).
		Str("hunt_id", huntID).
		Str("admin", auth.AdminUserFromContext(r.Context())).
		Msg("Hunt settings updated")

	respondSuccess(w, r, http.StatusOK, updated)
}
