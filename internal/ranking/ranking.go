// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package ranking orders teams for the leaderboard.
//
// The ordering is deterministic: completed stops descending, then total
// elapsed time ascending with unknown times last, then last-completion
// timestamp ascending. Ranks are contiguous starting at 1; ties in the sort
// key still receive distinct ranks in input-stable order.
package ranking

import (
	"fmt"
	"sort"
	"time"

	"github.com/questmap/questmap/internal/models"
)

// CalculateTotalTime derives a team's elapsed time from its completion
// timestamps. No completed stops yields nil (unknown), a single completed
// stop yields zero, otherwise the span between the earliest and latest
// completion in milliseconds.
func CalculateTotalTime(completedAt []time.Time) *int64 {
	if len(completedAt) == 0 {
		return nil
	}
	min, max := completedAt[0], completedAt[0]
	for _, t := range completedAt[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	ms := max.Sub(min).Milliseconds()
	return &ms
}

// totalTime resolves a standing's elapsed time from its first and last
// completion markers, mirroring CalculateTotalTime for pre-aggregated rows.
func totalTime(s models.TeamStanding) *int64 {
	if s.CompletedStops == 0 || s.FirstCompletedAt == nil || s.LastCompletedAt == nil {
		return nil
	}
	ms := s.LastCompletedAt.Sub(*s.FirstCompletedAt).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return &ms
}

// RankTeams converts raw standings into ranked leaderboard entries. The input
// slice is not modified; the result has the same length with ranks 1..N.
func RankTeams(standings []models.TeamStanding) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(standings))
	for _, s := range standings {
		entries = append(entries, models.LeaderboardEntry{
			TeamID:          s.TeamID,
			DisplayName:     s.DisplayName,
			CompletedStops:  s.CompletedStops,
			TotalStops:      s.TotalStops,
			TotalTimeMs:     totalTime(s),
			LastCompletedAt: s.LastCompletedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.CompletedStops != b.CompletedStops {
			return a.CompletedStops > b.CompletedStops
		}
		// Known elapsed time beats unknown; smaller beats larger.
		switch {
		case a.TotalTimeMs != nil && b.TotalTimeMs == nil:
			return true
		case a.TotalTimeMs == nil && b.TotalTimeMs != nil:
			return false
		case a.TotalTimeMs != nil && b.TotalTimeMs != nil && *a.TotalTimeMs != *b.TotalTimeMs:
			return *a.TotalTimeMs < *b.TotalTimeMs
		}
		return lessTimePtr(a.LastCompletedAt, b.LastCompletedAt)
	})

	for i := range entries {
		entries[i].Rank = i + 1
		if entries[i].TotalTimeMs != nil {
			entries[i].TotalTimeDisplay = FormatDuration(*entries[i].TotalTimeMs)
		}
	}
	return entries
}

// lessTimePtr orders timestamps ascending with nil last.
func lessTimePtr(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.Before(*b)
}

// FormatDuration renders an elapsed-time value for display: "4h 02m 09s" when
// hours are present, otherwise "2m 09s", otherwise "45s".
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
