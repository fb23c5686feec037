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

// FindTeamByCodeHash resolves a team from the hash of its join code.
// Returns ErrNotFound when no team matches.
func (s *Store) FindTeamByCodeHash(ctx context.Context, codeHash string) (*models.Team, error) {
	start := time.Now()
	query := `
		SELECT team_id, organization_id, hunt_id, display_name, score,
		       COALESCE(last_device_hint, ''), lock_issued_at, created_at, updated_at
		FROM teams
		WHERE code_hash = $1
	`

	team, err := s.scanTeam(s.db.QueryRowContext(ctx, query, codeHash))
	metrics.RecordDBQuery("select", "teams", time.Since(start), err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find team by code: %w", err)
	}
	return team, nil
}

// GetTeam fetches a team by ID. Returns ErrNotFound when absent.
func (s *Store) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	start := time.Now()
	query := `
		SELECT team_id, organization_id, hunt_id, display_name, score,
		       COALESCE(last_device_hint, ''), lock_issued_at, created_at, updated_at
		FROM teams
		WHERE team_id = $1
	`

	team, err := s.scanTeam(s.db.QueryRowContext(ctx, query, teamID))
	metrics.RecordDBQuery("select", "teams", time.Since(start), err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// RecordLock stores the device hint and issue time of the lock token just
// handed to a team, so later verifications can detect a second device.
func (s *Store) RecordLock(ctx context.Context, teamID, deviceHint string, issuedAt time.Time) error {
	start := time.Now()
	query := `
		UPDATE teams
		SET last_device_hint = $2, lock_issued_at = $3, updated_at = NOW()
		WHERE team_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, teamID, deviceHint, issuedAt)
	metrics.RecordDBQuery("update", "teams", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to record lock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check lock update: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTeam(row rowScanner) (*models.Team, error) {
	var team models.Team
	var lockIssuedAt sql.NullTime
	err := row.Scan(
		&team.TeamID,
		&team.OrganizationID,
		&team.HuntID,
		&team.DisplayName,
		&team.Score,
		&team.LastDeviceHint,
		&lockIssuedAt,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockIssuedAt.Valid {
		team.LockIssuedAt = &lockIssuedAt.Time
	}
	return &team, nil
}
