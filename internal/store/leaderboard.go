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

	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/models"
)

// GetStandings aggregates per-team completion data for a hunt: completed
// stop count and the first/last completion timestamps. Teams with no
// progress rows still appear with zero completions.
func (s *Store) GetStandings(ctx context.Context, orgID, huntID string) ([]models.TeamStanding, error) {
	start := time.Now()
	query := `
		SELECT t.team_id,
		       t.display_name,
		       COUNT(p.location_id) FILTER (WHERE p.done) AS completed_stops,
		       (SELECT COUNT(*) FROM hunt_locations l
		        WHERE l.organization_id = t.organization_id AND l.hunt_id = t.hunt_id) AS total_stops,
		       MIN(p.completed_at) FILTER (WHERE p.done) AS first_completed_at,
		       MAX(p.completed_at) FILTER (WHERE p.done) AS last_completed_at
		FROM teams t
		LEFT JOIN progress p ON p.team_id = t.team_id
		WHERE t.organization_id = $1 AND t.hunt_id = $2
		GROUP BY t.team_id, t.display_name, t.organization_id, t.hunt_id
	`

	rows, err := s.db.QueryContext(ctx, query, orgID, huntID)
	metrics.RecordDBQuery("select", "standings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings: %w", err)
	}
	defer rows.Close()

	standings := make([]models.TeamStanding, 0)
	for rows.Next() {
		var st models.TeamStanding
		var first, last sql.NullTime
		err := rows.Scan(
			&st.TeamID, &st.DisplayName,
			&st.CompletedStops, &st.TotalStops,
			&first, &last,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", err)
		}
		if first.Valid {
			st.FirstCompletedAt = &first.Time
		}
		if last.Valid {
			st.LastCompletedAt = &last.Time
		}
		standings = append(standings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standing rows: %w", err)
	}
	return standings, nil
}
