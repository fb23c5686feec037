// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/models"
	"github.com/questmap/questmap/internal/store"
)

// VerifyTeam handles POST /api/v1/team/verify: exchanges a team code for a
// lock token. When another device holds a live lock for the team, the
// request is rejected with LOCK_CONFLICT unless force is set.
func (h *Handler) VerifyTeam(w http.ResponseWriter, r *http.Request) {
	var req VerifyTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidationError, "invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	codeHash := lock.HashTeamCode(req.TeamCode)
	team, err := h.store.FindTeamByCodeHash(r.Context(), codeHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.LockVerifyFailures.WithLabelValues("not_found").Inc()
			// Same response shape for unknown codes as for invalid tokens;
			// the client cannot probe which codes exist.
			respondError(w, r, http.StatusUnauthorized, CodeInvalidTeamCode, "team code not recognized", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to verify team", err)
		return
	}

	hint := lock.DeviceHint(r.UserAgent(), clientIP(r), h.cfg.Security.DeviceHintSeed)

	conflicted := h.lockHeldElsewhere(team, hint)
	if conflicted && !req.Force {
		metrics.LockVerifyFailures.WithLabelValues("conflict").Inc()
		respondErrorDetails(w, r, http.StatusConflict, CodeLockConflict,
			"another device is already checked in as this team",
			map[string]interface{}{
				"teamId":      team.TeamID,
				"lockedSince": team.LockIssuedAt,
			}, nil)
		return
	}

	token, err := h.locks.Generate(team.TeamID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to issue lock token", err)
		return
	}

	now := time.Now()
	if err := h.store.RecordLock(r.Context(), team.TeamID, hint, now); err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to record lock", err)
		return
	}

	metrics.LockTokensIssued.Inc()
	ctxLogger := logging.Ctx(r.Context())
	ctxLogger.Info().
		Str("team_id", team.TeamID).
		Bool("forced", conflicted && req.Force).
		Msg("Team verified")

	respondSuccess(w, r, http.StatusOK, &models.VerifyResult{
		Team:       team,
		LockToken:  token,
		Conflict:   conflicted && req.Force,
		DeviceHint: hint,
	})
}

// CurrentTeam handles GET /api/v1/team/current: resolves the locked team
// from the bearer token.
func (h *Handler) CurrentTeam(w http.ResponseWriter, r *http.Request) {
	teamID := lock.TeamIDFromContext(r.Context())
	if teamID == "" {
		respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "lock token required", nil)
		return
	}

	team, err := h.store.GetTeam(r.Context(), teamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, CodeNotFound, "team no longer exists", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load team", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, team)
}

// lockHeldElsewhere reports whether a different device checked in as this
// team within the lock TTL. A matching hint is the same device refreshing.
func (h *Handler) lockHeldElsewhere(team *models.Team, hint string) bool {
	if team.LastDeviceHint == "" || team.LockIssuedAt == nil {
		return false
	}
	if team.LastDeviceHint == hint {
		return false
	}
	return time.Since(*team.LockIssuedAt) < h.locks.TTL()
}

// clientIP returns the request's source IP. The router applies RealIP
// upstream, so RemoteAddr already reflects X-Forwarded-For behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
