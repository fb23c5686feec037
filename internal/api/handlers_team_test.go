// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/models"
)

func verifyRequest(body string, userAgent string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/team/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req
}

func TestVerifyTeamSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wild-goose"}`, "agent-a"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}

	raw, _ := json.Marshal(resp.Data)
	var result models.VerifyResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode verify result: %v", err)
	}
	if result.LockToken == "" {
		t.Error("expected a lock token")
	}
	if result.Team == nil || result.Team.TeamID != "team-1" {
		t.Errorf("unexpected team: %+v", result.Team)
	}
	if claims := env.locks.Verify(result.LockToken); claims == nil || claims.TeamID != "team-1" {
		t.Error("issued token should verify for team-1")
	}
	if len(env.store.lockRecords) != 1 {
		t.Errorf("expected one lock record, got %v", env.store.lockRecords)
	}
}

func TestVerifyTeamCodeNormalization(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "Wild-Goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"  WILD-GOOSE  "}`, "agent-a"))

	if rec.Code != http.StatusOK {
		t.Errorf("code matching should ignore case and whitespace, got %d", rec.Code)
	}
}

func TestVerifyTeamUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wrong-code"}`, "agent-a"))

	assertErrorCode(t, rec, http.StatusUnauthorized, CodeInvalidTeamCode)
}

func TestVerifyTeamValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":""}`, "agent-a"))

	assertErrorCode(t, rec, http.StatusBadRequest, CodeValidationError)
}

func TestVerifyTeamConflictSecondDevice(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	// First device checks in.
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wild-goose"}`, "device-one"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first verify failed: %d", rec.Code)
	}

	// Second device with a different fingerprint is rejected.
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wild-goose"}`, "device-two"))
	assertErrorCode(t, rec, http.StatusConflict, CodeLockConflict)
}

func TestVerifyTeamSameDeviceRefreshes(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wild-goose"}`, "same-device"))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestVerifyTeamForceTakesOver(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wild-goose"}`, "device-one"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first verify failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wild-goose","force":true}`, "device-two"))
	if rec.Code != http.StatusOK {
		t.Fatalf("forced verify should succeed, got %d", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var result models.VerifyResult
	_ = json.Unmarshal(raw, &result)
	if !result.Conflict {
		t.Error("forced takeover should flag the conflict")
	}
}

func TestVerifyTeamExpiredLockNoConflict(t *testing.T) {
	env := newTestEnv(t)
	team := env.addTeam("team-1", "wild-goose")

	// A lock from long ago no longer blocks a new device.
	old := time.Now().Add(-48 * time.Hour)
	team.LastDeviceHint = "stale-device-hint"
	team.LockIssuedAt = &old

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, verifyRequest(`{"teamCode":"wild-goose"}`, "device-new"))
	if rec.Code != http.StatusOK {
		t.Errorf("expired lock should not conflict, got %d", rec.Code)
	}
}

func TestCurrentTeam(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	token := env.tokenFor(t, "team-1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/team/current", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCurrentTeamWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/team/current", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestCurrentTeamDeletedTeam(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, "ghost-team")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/team/current", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assertErrorCode(t, rec, http.StatusNotFound, CodeNotFound)
}

func TestDeviceHintStability(t *testing.T) {
	a := lock.DeviceHint("agent", "10.0.0.1", "seed")
	b := lock.DeviceHint("agent", "10.0.0.1", "seed")
	if a != b {
		t.Error("device hint must be stable for the same inputs")
	}
}
