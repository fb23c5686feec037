// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"time"

	"github.com/questmap/questmap/internal/models"
)

// VerifyTeamRequest is the body of POST /api/v1/team/verify.
type VerifyTeamRequest struct {
	TeamCode string `json:"teamCode" validate:"required,min=4,max=64"`
	// Force takes over the team lock even when another device holds it.
	Force bool `json:"force"`
}

// ProgressPutRequest is the body of PUT /api/v1/progress: the client's full
// progress map keyed by location ID.
type ProgressPutRequest struct {
	Progress map[string]models.Progress `json:"progress" validate:"required"`
}

// ProgressPatchRequest is the body of PATCH /api/v1/progress/{locationId}.
type ProgressPatchRequest struct {
	Done          *bool      `json:"done"`
	RevealedHints *int       `json:"revealedHints" validate:"omitempty,gte=0,lte=20"`
	CompletedAt   *time.Time `json:"completedAt"`
	PhotoURL      *string    `json:"photoUrl" validate:"omitempty,url"`
	Notes         *string    `json:"notes" validate:"omitempty,max=2000"`
}

// SettingsUpdateRequest is the body of PUT /api/v1/hunts/{orgId}/{huntId}/settings.
// ExpectedUpdatedAt is the optimistic-concurrency token: the value of
// updatedAt from the caller's last read.
type SettingsUpdateRequest struct {
	Config            map[string]interface{} `json:"config" validate:"required"`
	ExpectedUpdatedAt time.Time              `json:"expectedUpdatedAt" validate:"required"`
}
