// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package services

import (
	"context"
	"time"

	"github.com/questmap/questmap/internal/logging"
)

// GarbageCollector is the slice of the idempotency store the maintenance
// loop needs.
type GarbageCollector interface {
	RunGC() error
}

// CacheStats is the slice of the response cache the maintenance loop needs.
type CacheStats interface {
	HitRate() float64
}

// MaintenanceService periodically reclaims Badger value-log space and logs
// cache effectiveness. Badger only reclaims disk space when value-log GC is
// driven externally, so skipping this loop grows the idempotency store
// without bound.
type MaintenanceService struct {
	gc       GarbageCollector
	cache    CacheStats
	interval time.Duration
	name     string
}

// NewMaintenanceService creates the maintenance loop. An interval of zero
// defaults to 10 minutes. gc and cache may each be nil, in which case the
// corresponding task is skipped.
func NewMaintenanceService(gc GarbageCollector, cache CacheStats, interval time.Duration) *MaintenanceService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &MaintenanceService{
		gc:       gc,
		cache:    cache,
		interval: interval,
		name:     "maintenance",
	}
}

// Serve implements suture.Service.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runOnce()
		}
	}
}

func (m *MaintenanceService) runOnce() {
	if m.gc != nil {
		if err := m.gc.RunGC(); err != nil {
			logging.Warn().Err(err).Msg("Idempotency store GC failed")
		}
	}
	if m.cache != nil {
		logging.Debug().
			Float64("hit_rate", m.cache.HitRate()).
			Msg("Response cache stats")
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (m *MaintenanceService) String() string {
	return m.name
}
