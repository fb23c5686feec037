// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package models defines the data structures shared between the store, the
// API layer, and the ranking engine. All persisted invariants (uniqueness of
// a progress row per team and location, referential integrity) are enforced
// by the hosted Postgres database, not by these types.
package models

import "time"

// Team represents a participating team within a hunt.
type Team struct {
	TeamID         string    `json:"teamId"`
	OrganizationID string    `json:"organizationId"`
	HuntID         string    `json:"huntId"`
	DisplayName    string    `json:"displayName"`
	Score          int       `json:"score"`
	// LastDeviceHint is the fingerprint of the device that most recently
	// checked in as this team. Conflict-detection tag only.
	LastDeviceHint string    `json:"-"`
	LockIssuedAt   *time.Time `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Progress is one team's state for one hunt location. At most one row exists
// per (team, location) pair; the database upsert constraint enforces this.
type Progress struct {
	TeamID        string     `json:"teamId"`
	LocationID    string     `json:"locationId"`
	Done          bool       `json:"done"`
	RevealedHints int        `json:"revealedHints"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	PhotoURL      string     `json:"photoUrl,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ProgressUpdate carries a partial update for a single location. Nil fields
// are left untouched by the patch.
type ProgressUpdate struct {
	Done          *bool      `json:"done,omitempty"`
	RevealedHints *int       `json:"revealedHints,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	PhotoURL      *string    `json:"photoUrl,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

/// HuntLocation is one stop in a hunt: a clue, optional hints, and a position
// used for ordering in the client.
type HuntLocation struct {
	LocationID     string   `json:"locationId"`
	OrganizationID string   `json:"organizationId"`
	HuntID         string   `json:"huntId"`
	Title          string   `json:"title"`
	Clue           string   `json:"clue"`
	Hints          []string `json:"hints,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Position       int      `json:"position"`
}

// SponsorAsset is a sponsor card shown in the client.
type SponsorAsset struct {
	AssetID        string `json:"assetId"`
	OrganizationID string `json:"organizationId"`
	HuntID         string `json:"huntId"`
	CompanyName    string `json:"companyName"`
	ImageURL       string `json:"imageUrl"`
	AltText        string `json:"altText,omitempty"`
	Position       int    `json:"position"`
}

// HuntSettings holds the slowly-changing configuration of a hunt.
// Config is an opaque JSON document owned by the client; the backend only
// round-trips it. UpdatedAt doubles as the optimistic-concurrency token for
// settings writes.
type HuntSettings struct {
	OrganizationID string          `json:"organizationId"`
	HuntID         string          `json:"huntId"`
	Config         map[string]any  `json:"config"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// TeamStanding is the raw completion data for one team, as aggregated by the
// store, before ranking.
type TeamStanding struct {
	TeamID          string     `json:"teamId"`
	DisplayName     string     `json:"displayName"`
	CompletedStops  int        `json:"completedStops"`
	TotalStops      int        `json:"totalStops"`
	FirstCompletedAt *time.Time `json:"-"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
}

// LeaderboardEntry is a ranked team as served to clients.
type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	TeamID         string     `json:"teamId"`
	DisplayName    string     `json:"displayName"`
	CompletedStops int        `json:"completedStops"`
	TotalStops     int        `json:"totalStops"`
	// TotalTimeMs is elapsed wall time between the first and last completed
	// stop. Nil when the team has no completed stops with timestamps.
	TotalTimeMs     *int64     `json:"totalTimeMs"`
	TotalTimeDisplay string    `json:"totalTimeDisplay,omitempty"`
	LastCompletedAt  *time.Time `json:"lastCompletedAt,omitempty"`
}

// ActiveHunt is the consolidated aggregate served by the /active endpoint:
// everything a just-woken client needs in one round trip.
type ActiveHunt struct {
	Settings  *HuntSettings       `json:"settings"`
	Progress  map[string]Progress `json:"progress"`
	Sponsors  []SponsorAsset      `json:"sponsors"`
	Locations []HuntLocation      `json:"locations"`
}

// VerifyResult is the payload returned by a successful team verify.
type VerifyResult struct {
	Team      *Team  `json:"team"`
	LockToken string `json:"lockToken"`
	// Conflict is set when another device appears to hold this team's lock.
	// It is advisory; the token above is still issued.
	Conflict   bool   `json:"conflict"`
	DeviceHint string `json:"deviceHint"`
}

// UploadResult is the payload returned by a photo upload.
type UploadResult struct {
	PhotoURL   string `json:"photoUrl"`
	PublicID   string `json:"publicId"`
	LocationID string `json:"locationId,omitempty"`
	// Replayed is true when an orchestrated upload was deduplicated by its
	// idempotency key and the stored result was returned.
	Replayed bool `json:"replayed,omitempty"`
}

// HealthStatus reports dependency health for monitoring.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"databaseConnected"`
	UploaderConfigured bool   `json:"uploaderConfigured"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}
