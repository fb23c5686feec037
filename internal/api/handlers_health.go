// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"net/http"
	"time"

	"github.com/questmap/questmap/internal/models"
)

// HealthLive handles GET /api/v1/health/live: process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready: liveness plus a database
// ping. Returns 503 when Postgres is unreachable so load balancers stop
// routing traffic here.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := &models.HealthStatus{
		Status:             "ready",
		Version:            Version,
		DatabaseConnected:  true,
		UploaderConfigured: h.uploader != nil,
		UptimeSeconds:      time.Since(h.startTime).Seconds(),
	}

	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.DatabaseConnected = false
		respondJSON(w, http.StatusServiceUnavailable, &Response{
			Success: false,
			Data:    status,
			Error: &Error{
				Code:       CodeInternalError,
				Message:    "database unreachable",
				StatusCode: http.StatusServiceUnavailable,
			},
			Meta: Meta{Timestamp: time.Now()},
		})
		return
	}

	respondSuccess(w, r, http.StatusOK, status)
}
