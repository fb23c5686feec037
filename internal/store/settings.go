// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/models"
)

// GetSettings loads the settings document for one hunt.
// Returns ErrNotFound when the hunt has no settings row.
func (s *Store) GetSettings(ctx context.Context, orgID, huntID string) (*models.HuntSettings, error) {
	start := time.Now()
	query := `
		SELECT organization_id, hunt_id, config, updated_at
		FROM hunt_settings
		WHERE organization_id = $1 AND hunt_id = $2
	`

	var settings models.HuntSettings
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, orgID, huntID).Scan(
		&settings.OrganizationID,
		&settings.HuntID,
		&raw,
		&settings.UpdatedAt,
	)
	metrics.RecordDBQuery("select", "hunt_settings", time.Since(start), err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if err := json.Unmarshal(raw, &settings.Config); err != nil {
		return nil, fmt.Errorf("failed to decode settings config: %w", err)
	}
	return &settings, nil
}

// UpdateSettings replaces the settings document, guarded by an optimistic
// concurrency check on updated_at: the write succeeds only if the stored
// timestamp still equals expectedUpdatedAt. A stale timestamp yields
// ErrConflict; a missing row yields ErrNotFound.
func (s *Store) UpdateSettings(ctx context.Context, settings *models.HuntSettings, expectedUpdatedAt time.Time) (*models.HuntSettings, error) {
	raw, err := json.Marshal(settings.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings config: %w", err)
	}

	start := time.Now()
	query := `
		UPDATE hunt_settings
		SET config = $3, updated_at = NOW()
		WHERE organization_id = $1 AND hunt_id = $2 AND updated_at = $4
		RETURNING updated_at
	`

	var newUpdatedAt time.Time
	err = s.db.QueryRowContext(ctx, query,
		settings.OrganizationID, settings.HuntID, raw, expectedUpdatedAt,
	).Scan(&newUpdatedAt)
	metrics.RecordDBQuery("update", "hunt_settings", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a stale timestamp from a missing hunt.
		if _, getErr := s.GetSettings(ctx, settings.OrganizationID, settings.HuntID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	updated := *settings
	updated.UpdatedAt = newUpdatedAt
	return &updated, nil
}
