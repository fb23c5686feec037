// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/models"
)

// ListSponsors returns the sponsor cards for a hunt ordered by position.
func (s *Store) ListSponsors(ctx context.Context, orgID, huntID string) ([]models.SponsorAsset, error) {
	start := time.Now()
	query := `
		SELECT asset_id, organization_id, hunt_id, company_name, image_url,
		       COALESCE(alt_text, ''), position
		FROM sponsor_assets
		WHERE organization_id = $1 AND hunt_id = $2
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, orgID, huntID)
	metrics.RecordDBQuery("select", "sponsor_assets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query sponsors: %w", err)
	}
	defer rows.Close()

	sponsors := make([]models.SponsorAsset, 0)
	for rows.Next() {
		var a models.SponsorAsset
		err := rows.Scan(
			&a.AssetID, &a.OrganizationID, &a.HuntID,
			&a.CompanyName, &a.ImageURL, &a.AltText, &a.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sponsor row: %w", err)
		}
		sponsors = append(sponsors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sponsor rows: %w", err)
	}
	return sponsors, nil
}

// ListLocations returns a hunt's stops ordered by position. Hints are stored
// as a jsonb array.
func (s *Store) ListLocations(ctx context.Context, orgID, huntID string) ([]models.HuntLocation, error) {
	start := time.Now()
	query := `
		SELECT location_id, organization_id, hunt_id, title, clue,
		       COALESCE(hints, '[]'::jsonb), latitude, longitude, position
		FROM hunt_locations
		WHERE organization_id = $1 AND hunt_id = $2
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, orgID, huntID)
	metrics.RecordDBQuery("select", "hunt_locations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	locations := make([]models.HuntLocation, 0)
	for rows.Next() {
		var loc models.HuntLocation
		var rawHints []byte
		var lat, lon sql.NullFloat64
		err := rows.Scan(
			&loc.LocationID, &loc.OrganizationID, &loc.HuntID,
			&loc.Title, &loc.Clue, &rawHints, &lat, &lon, &loc.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		if err := json.Unmarshal(rawHints, &loc.Hints); err != nil {
			return nil, fmt.Errorf("failed to decode hints for location %s: %w", loc.LocationID, err)
		}
		if lat.Valid {
			loc.Latitude = &lat.Float64
		}
		if lon.Valid {
			loc.Longitude = &lon.Float64
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location rows: %w", err)
	}
	return locations, nil
}
