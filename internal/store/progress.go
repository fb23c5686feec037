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

	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/models"
)

// GetProgress returns a team's full progress map keyed by location ID.
// A team with no progress yet yields an empty map, not an error.
func (s *Store) GetProgress(ctx context.Context, teamID string) (map[string]models.Progress, error) {
	start := time.Now()
	query := `
		SELECT team_id, location_id, done, revealed_hints, completed_at,
		       COALESCE(photo_url, ''), COALESCE(notes, ''), updated_at
		FROM progress
		WHERE team_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, teamID)
	metrics.RecordDBQuery("select", "progress", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.Progress)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		result[p.LocationID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress rows: %w", err)
	}
	return result, nil
}

// ReplaceProgress upserts the full set of progress entries for a team in one
// transaction. Existing rows for locations present in entries are overwritten;
// rows for locations absent from entries are left alone.
func (s *Store) ReplaceProgress(ctx context.Context, teamID string, entries map[string]models.Progress) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO progress (team_id, location_id, done, revealed_hints, completed_at, photo_url, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (team_id, location_id) DO UPDATE
		SET done = EXCLUDED.done,
		    revealed_hints = EXCLUDED.revealed_hints,
		    completed_at = EXCLUDED.completed_at,
		    photo_url = EXCLUDED.photo_url,
		    notes = EXCLUDED.notes,
		    updated_at = NOW()
	`

	for locationID, p := range entries {
		_, err := tx.ExecContext(ctx, query,
			teamID, locationID, p.Done, p.RevealedHints,
			nullTime(p.CompletedAt), nullString(p.PhotoURL), nullString(p.Notes),
		)
		if err != nil {
			metrics.RecordDBQuery("upsert", "progress", time.Since(start), err)
			return fmt.Errorf("failed to upsert progress for location %s: %w", locationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("upsert", "progress", time.Since(start), err)
		return fmt.Errorf("failed to commit progress: %w", err)
	}
	metrics.RecordDBQuery("upsert", "progress", time.Since(start), nil)
	return nil
}

// PatchProgress applies a partial update to one location's progress row,
// creating the row if it does not exist. Nil fields keep their stored value.
func (s *Store) PatchProgress(ctx context.Context, teamID, locationID string, upd models.ProgressUpdate) (*models.Progress, error) {
	start := time.Now()
	query := `
		INSERT INTO progress (team_id, location_id, done, revealed_hints, completed_at, photo_url, notes, updated_at)
		VALUES ($1, $2, COALESCE($3, FALSE), COALESCE($4, 0), $5, $6, $7, NOW())
		ON CONFLICT (team_id, location_id) DO UPDATE
		SET done = COALESCE($3, progress.done),
		    revealed_hints = COALESCE($4, progress.revealed_hints),
		    completed_at = COALESCE($5, progress.completed_at),
		    photo_url = COALESCE($6, progress.photo_url),
		    notes = COALESCE($7, progress.notes),
		    updated_at = NOW()
		RETURNING team_id, location_id, done, revealed_hints, completed_at,
		          COALESCE(photo_url, ''), COALESCE(notes, ''), updated_at
	`

	row := s.db.QueryRowContext(ctx, query,
		teamID, locationID,
		nullBool(upd.Done), nullInt(upd.RevealedHints), nullTime(upd.CompletedAt),
		nullStringPtr(upd.PhotoURL), nullStringPtr(upd.Notes),
	)
	p, err := scanProgress(row)
	metrics.RecordDBQuery("upsert", "progress", time.Since(start), err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to patch progress: %w", err)
	}
	return p, nil
}

// SetPhotoURL records the hosted photo URL for one location, marking the row
// done if it was not already.
func (s *Store) SetPhotoURL(ctx context.Context, teamID, locationID, photoURL string) error {
	truth := true
	_, err := s.PatchProgress(ctx, teamID, locationID, models.ProgressUpdate{
		Done:     &truth,
		PhotoURL: &photoURL,
	})
	return err
}

func scanProgress(row rowScanner) (*models.Progress, error) {
	var p models.Progress
	var completedAt sql.NullTime
	err := row.Scan(
		&p.TeamID,
		&p.LocationID,
		&p.Done,
		&p.RevealedHints,
		&completedAt,
		&p.PhotoURL,
		&p.Notes,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
