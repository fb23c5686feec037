// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"context"
	"time"

	"github.com/questmap/questmap/internal/cache"
	"github.com/questmap/questmap/internal/config"
	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/models"
	"github.com/questmap/questmap/internal/upload"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Store is the persistence surface the handlers need. *store.Store satisfies
// it; tests substitute fakes.
type Store interface {
	FindTeamByCodeHash(ctx context.Context, codeHash string) (*models.Team, error)
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
	RecordLock(ctx context.Context, teamID, deviceHint string, issuedAt time.Time) error

	GetProgress(ctx context.Context, teamID string) (map[string]models.Progress, error)
	ReplaceProgress(ctx context.Context, teamID string, entries map[string]models.Progress) error
	PatchProgress(ctx context.Context, teamID, locationID string, upd models.ProgressUpdate) (*models.Progress, error)
	SetPhotoURL(ctx context.Context, teamID, locationID, photoURL string) error

	GetSettings(ctx context.Context, orgID, huntID string) (*models.HuntSettings, error)
	UpdateSettings(ctx context.Context, settings *models.HuntSettings, expectedUpdatedAt time.Time) (*models.HuntSettings, error)

	ListSponsors(ctx context.Context, orgID, huntID string) ([]models.SponsorAsset, error)
	ListLocations(ctx context.Context, orgID, huntID string) ([]models.HuntLocation, error)
	GetStandings(ctx context.Context, orgID, huntID string) ([]models.TeamStanding, error)

	Ping(ctx context.Context) error
}

// Uploader is the image-service surface. *upload.Client satisfies it; a nil
// Uploader means photo uploads are disabled.
type Uploader interface {
	Upload(ctx context.Context, photo []byte, publicID string) (*upload.UploadResponse, error)
	CloudName() string
	MaxFileBytes() int64
	BreakerState() string
}

// IdempotencyStore deduplicates orchestrated uploads by client key.
type IdempotencyStore interface {
	Put(key string, result any) error
	Get(key string, out any) error
}

// Handler carries the dependencies shared by all endpoint handlers.
type Handler struct {
	store     Store
	locks     *lock.Manager
	cache     *cache.Cache
	uploader  Uploader
	idem      IdempotencyStore
	cfg       *config.Config
	startTime time.Time
}

// NewHandler wires the handler set. uploader and idem may be nil; the photo
// endpoints then report uploads as unavailable.
func NewHandler(store Store, locks *lock.Manager, responseCache *cache.Cache, uploader Uploader, idem IdempotencyStore, cfg *config.Config) *Handler {
	return &Handler{
		store:     store,
		locks:     locks,
		cache:     responseCache,
		uploader:  uploader,
		idem:      idem,
		cfg:       cfg,
		startTime: time.Now(),
	}
}
