// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/questmap/questmap/internal/cache"
	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/models"
	"github.com/questmap/questmap/internal/ranking"
	"github.com/questmap/questmap/internal/store"
)

// huntScope extracts the {orgId}/{huntId} path pair.
func huntScope(r *http.Request) (string, string) {
	return chi.URLParam(r, "orgId"), chi.URLParam(r, "huntId")
}

// cachedFetch serves from the response cache when possible, otherwise loads
// via fn and stores the result.
func (h *Handler) cachedFetch(cacheType, key string, fn func() (interface{}, error)) (interface{}, bool, error) {
	if h.cache != nil {
		if value, ok := h.cache.Get(key); ok {
			metrics.CacheHits.WithLabelValues(cacheType).Inc()
			return value, true, nil
		}
		metrics.CacheMisses.WithLabelValues(cacheType).Inc()
	}

	value, err := fn()
	if err != nil {
		return nil, false, err
	}
	if h.cache != nil {
		h.cache.Set(key, value)
	}
	return value, false, nil
}

// Sponsors handles GET /api/v1/hunts/{orgId}/{huntId}/sponsors.
func (h *Handler) Sponsors(w http.ResponseWriter, r *http.Request) {
	orgID, huntID := huntScope(r)

	key := cache.GenerateKey("sponsors", []string{orgID, huntID})
	value, cached, err := h.cachedFetch("sponsors", key, func() (interface{}, error) {
		return h.store.ListSponsors(r.Context(), orgID, huntID)
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load sponsors", err)
		return
	}

	if cached {
		respondCached(w, r, value)
		return
	}
	respondSuccess(w, r, http.StatusOK, value)
}

// Locations handles GET /api/v1/hunts/{orgId}/{huntId}/locations.
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	orgID, huntID := huntScope(r)

	key := cache.GenerateKey("locations", []string{orgID, huntID})
	value, cached, err := h.cachedFetch("locations", key, func() (interface{}, error) {
		return h.store.ListLocations(r.Context(), orgID, huntID)
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load locations", err)
		return
	}

	if cached {
		respondCached(w, r, value)
		return
	}
	respondSuccess(w, r, http.StatusOK, value)
}

// Leaderboard handles GET /api/v1/hunts/{orgId}/{huntId}/leaderboard:
// standings aggregated from progress, ranked deterministically.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	orgID, huntID := huntScope(r)

	key := cache.GenerateKey("leaderboard", []string{orgID, huntID})
	value, cached, err := h.cachedFetch("leaderboard", key, func() (interface{}, error) {
		standings, err := h.store.GetStandings(r.Context(), orgID, huntID)
		if err != nil {
			return nil, err
		}
		return ranking.RankTeams(standings), nil
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load leaderboard", err)
		return
	}

	if cached {
		respondCached(w, r, value)
		return
	}
	respondSuccess(w, r, http.StatusOK, value)
}

// GetSettingsPublic handles GET /api/v1/hunts/{orgId}/{huntId}/settings.
func (h *Handler) GetSettingsPublic(w http.ResponseWriter, r *http.Request) {
	orgID, huntID := huntScope(r)

	key := cache.GenerateKey("settings", []string{orgID, huntID})
	value, cached, err := h.cachedFetch("settings", key, func() (interface{}, error) {
		return h.store.GetSettings(r.Context(), orgID, huntID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, CodeNotFound, "hunt settings not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load settings", err)
		return
	}

	if cached {
		respondCached(w, r, value)
		return
	}
	respondSuccess(w, r, http.StatusOK, value)
}

// Active handles GET /api/v1/hunts/{orgId}/{huntId}/active: everything a
// client needs after waking up, in one response. Requires a lock token so
// the team's progress can be included.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	orgID, huntID := huntScope(r)
	teamID := lock.TeamIDFromContext(r.Context())

	settings, err := h.store.GetSettings(r.Context(), orgID, huntID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load settings", err)
		return
	}

	sponsors, err := h.store.ListSponsors(r.Context(), orgID, huntID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load sponsors", err)
		return
	}

	locations, err := h.store.ListLocations(r.Context(), orgID, huntID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load locations", err)
		return
	}

	progress := map[string]models.Progress{}
	if teamID != "" {
		progress, err = h.store.GetProgress(r.Context(), teamID)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load progress", err)
			return
		}
	}

	respondSuccess(w, r, http.StatusOK, &models.ActiveHunt{
		Settings:  settings,
		Progress:  progress,
		Sponsors:  sponsors,
		Locations: locations,
	})
}
