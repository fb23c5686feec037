// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/questmap/questmap/internal/auth"
	"github.com/questmap/questmap/internal/cache"
	"github.com/questmap/questmap/internal/config"
	"github.com/questmap/questmap/internal/idempotency"
	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/models"
	"github.com/questmap/questmap/internal/store"
	"github.com/questmap/questmap/internal/upload"
)

const (
	testLockSecret    = "test-secret-test-secret-test-secret!"
	testAdminPassword = "hunt-admin-pw"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	teams       map[string]*models.Team   // by team_id
	codeHashes  map[string]string         // code hash -> team_id
	progress    map[string]map[string]models.Progress
	settings    map[string]*models.HuntSettings // org/hunt -> settings
	sponsors    []models.SponsorAsset
	locations   []models.HuntLocation
	standings   []models.TeamStanding
	pingErr     error
	failWith    error
	lockRecords []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams:      make(map[string]*models.Team),
		codeHashes: make(map[string]string),
		progress:   make(map[string]map[string]models.Progress),
		settings:   make(map[string]*models.HuntSettings),
	}
}

func (f *fakeStore) FindTeamByCodeHash(_ context.Context, codeHash string) (*models.Team, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	teamID, ok := f.codeHashes[codeHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.teams[teamID], nil
}

func (f *fakeStore) GetTeam(_ context.Context, teamID string) (*models.Team, error) {
	team, ok := f.teams[teamID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return team, nil
}

func (f *fakeStore) RecordLock(_ context.Context, teamID, deviceHint string, issuedAt time.Time) error {
	team, ok := f.teams[teamID]
	if !ok {
		return store.ErrNotFound
	}
	team.LastDeviceHint = deviceHint
	team.LockIssuedAt = &issuedAt
	f.lockRecords = append(f.lockRecords, teamID+":"+deviceHint)
	return nil
}

func (f *fakeStore) GetProgress(_ context.Context, teamID string) (map[string]models.Progress, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.progress[teamID]
	if !ok {
		return map[string]models.Progress{}, nil
	}
	return p, nil
}

func (f *fakeStore) ReplaceProgress(_ context.Context, teamID string, entries map[string]models.Progress) error {
	if f.progress[teamID] == nil {
		f.progress[teamID] = make(map[string]models.Progress)
	}
	for id, p := range entries {
		p.TeamID = teamID
		p.LocationID = id
		f.progress[teamID][id] = p
	}
	return nil
}

func (f *fakeStore) PatchProgress(_ context.Context, teamID, locationID string, upd models.ProgressUpdate) (*models.Progress, error) {
	if f.progress[teamID] == nil {
		f.progress[teamID] = make(map[string]models.Progress)
	}
	p := f.progress[teamID][locationID]
	p.TeamID = teamID
	p.LocationID = locationID
	if upd.Done != nil {
		p.Done = *upd.Done
	}
	if upd.RevealedHints != nil {
		p.RevealedHints = *upd.RevealedHints
	}
	if upd.CompletedAt != nil {
		p.CompletedAt = upd.CompletedAt
	}
	if upd.PhotoURL != nil {
		p.PhotoURL = *upd.PhotoURL
	}
	if upd.Notes != nil {
		p.Notes = *upd.Notes
	}
	p.UpdatedAt = time.Now()
	f.progress[teamID][locationID] = p
	return &p, nil
}

func (f *fakeStore) SetPhotoURL(ctx context.Context, teamID, locationID, photoURL string) error {
	truth := true
	_, err := f.PatchProgress(ctx, teamID, locationID, models.ProgressUpdate{Done: &truth, PhotoURL: &photoURL})
	return err
}

func (f *fakeStore) GetSettings(_ context.Context, orgID, huntID string) (*models.HuntSettings, error) {
	s, ok := f.settings[orgID+"/"+huntID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) UpdateSettings(_ context.Context, settings *models.HuntSettings, expectedUpdatedAt time.Time) (*models.HuntSettings, error) {
	key := settings.OrganizationID + "/" + settings.HuntID
	existing, ok := f.settings[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !existing.UpdatedAt.Equal(expectedUpdatedAt) {
		return nil, store.ErrConflict
	}
	updated := *settings
	updated.UpdatedAt = time.Now()
	f.settings[key] = &updated
	return &updated, nil
}

func (f *fakeStore) ListSponsors(_ context.Context, _, _ string) ([]models.SponsorAsset, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.sponsors, nil
}

func (f *fakeStore) ListLocations(_ context.Context, _, _ string) ([]models.HuntLocation, error) {
	return f.locations, nil
}

func (f *fakeStore) GetStandings(_ context.Context, _, _ string) ([]models.TeamStanding, error) {
	return f.standings, nil
}

func (f *fakeStore) Ping(_ context.Context) error { return f.pingErr }

// fakeUploader satisfies Uploader without network calls.
type fakeUploader struct {
	uploads int
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, photo []byte, publicID string) (*upload.UploadResponse, error) {
	u.uploads++
	if u.err != nil {
		return nil, u.err
	}
	return &upload.UploadResponse{
		PublicID:  "hunts/" + publicID,
		SecureURL: "https://res.cloudinary.example/hunts/" + publicID + ".jpg",
		Bytes:     int64(len(photo)),
	}, nil
}

func (u *fakeUploader) CloudName() string    { return "demo" }
func (u *fakeUploader) MaxFileBytes() int64  { return 5 << 20 }
func (u *fakeUploader) BreakerState() string { return "closed" }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.LockSecret = testLockSecret
	cfg.Security.LockTTL = time.Hour
	cfg.Security.DeviceHintSeed = "seed"
	cfg.Security.RateLimitDisabled = true
	cfg.Cloudinary.UploadFolder = "hunts"
	return cfg
}

type testEnv struct {
	store   *fakeStore
	handler *Handler
	locks   *lock.Manager
	router  http.Handler
	idem    *idempotency.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()

	locks, err := lock.NewManager(&cfg.Security)
	if err != nil {
		t.Fatalf("failed to create lock manager: %v", err)
	}

	idem, err := idempotency.Open(&config.IdempotencyConfig{InMemory: true, TTL: time.Hour})
	if err != nil {
		t.Fatalf("failed to open idempotency store: %v", err)
	}
	t.Cleanup(func() { _ = idem.Close() })

	responseCache := cache.New(time.Minute)
	t.Cleanup(responseCache.Stop)

	fs := newFakeStore()
	handler := NewHandler(fs, locks, responseCache, &fakeUploader{}, idem, cfg)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin password: %v", err)
	}
	admin, err := auth.NewAdminManager("admin", string(hash))
	if err != nil {
		t.Fatalf("failed to create admin manager: %v", err)
	}

	router := NewRouter(handler, NewChiMiddleware(&cfg.Security), admin).Setup()
	return &testEnv{store: fs, handler: handler, locks: locks, router: router, idem: idem}
}

// addTeam seeds a team reachable by code.
func (e *testEnv) addTeam(teamID, code string) *models.Team {
	team := &models.Team{
		TeamID:         teamID,
		OrganizationID: "org-1",
		HuntID:         "hunt-1",
		DisplayName:    "Team " + teamID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	e.store.teams[teamID] = team
	e.store.codeHashes[lock.HashTeamCode(code)] = teamID
	return team
}

func (e *testEnv) tokenFor(t *testing.T, teamID string) string {
	t.Helper()
	token, err := e.locks.Generate(teamID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	return &resp
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("expected status %d, got %d (body: %s)", status, rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error == nil || resp.Error.Code != code {
		t.Errorf("expected error code %s, got %+v", code, resp.Error)
	}
}

var errBoom = errors.New("boom")
