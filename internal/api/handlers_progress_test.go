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

	"github.com/questmap/questmap/internal/models"
)

func authedRequest(t *testing.T, env *testEnv, method, path, body string) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, "team-1"))
	return req
}

func decodeProgressMap(t *testing.T, resp *Response) map[string]models.Progress {
	t.Helper()
	raw, _ := json.Marshal(resp.Data)
	var out map[string]models.Progress
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to decode progress map: %v", err)
	}
	return out
}

func TestGetProgressEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodGet, "/api/v1/progress", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	progress := decodeProgressMap(t, decodeEnvelope(t, rec))
	if len(progress) != 0 {
		t.Errorf("expected empty progress map, got %v", progress)
	}
}

func TestGetProgressRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestPutProgressReplaces(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	// Seed an entry that is not part of the replacement payload.
	env.store.progress["team-1"] = map[string]models.Progress{
		"loc-old": {TeamID: "team-1", LocationID: "loc-old", Done: true},
	}

	body := `{"progress":{"loc-1":{"done":true,"revealedHints":2},"loc-2":{"done":false}}}`
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodPut, "/api/v1/progress", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	progress := decodeProgressMap(t, decodeEnvelope(t, rec))
	entry, ok := progress["loc-1"]
	if !ok {
		t.Fatal("expected loc-1 in response")
	}
	if !entry.Done || entry.RevealedHints != 2 {
		t.Errorf("unexpected loc-1 entry: %+v", entry)
	}
	if entry.TeamID != "team-1" || entry.LocationID != "loc-1" {
		t.Errorf("stored entry should carry owning keys: %+v", entry)
	}
	if _, ok := progress["loc-2"]; !ok {
		t.Error("expected loc-2 in response")
	}
}

func TestPutProgressValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodPut, "/api/v1/progress", `{}`))

	assertErrorCode(t, rec, http.StatusBadRequest, CodeValidationError)
}

func TestPutProgressMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodPut, "/api/v1/progress", `{not json`))

	assertErrorCode(t, rec, http.StatusBadRequest, CodeValidationError)
}

func TestPatchProgressPartial(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	env.store.progress["team-1"] = map[string]models.Progress{
		"loc-1": {
			TeamID:        "team-1",
			LocationID:    "loc-1",
			RevealedHints: 1,
			Notes:         "keep me",
		},
	}

	completedAt := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	body := `{"done":true,"completedAt":"` + completedAt.Format(time.RFC3339) + `"}`
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodPatch, "/api/v1/progress/loc-1", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var entry models.Progress
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("failed to decode entry: %v", err)
	}
	if !entry.Done {
		t.Error("done should be updated")
	}
	if entry.CompletedAt == nil || !entry.CompletedAt.Equal(completedAt) {
		t.Errorf("unexpected completedAt: %v", entry.CompletedAt)
	}
	if entry.RevealedHints != 1 || entry.Notes != "keep me" {
		t.Errorf("absent fields must keep stored values: %+v", entry)
	}
}

func TestPatchProgressCreatesEntry(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodPatch, "/api/v1/progress/loc-new", `{"revealedHints":3}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	stored := env.store.progress["team-1"]["loc-new"]
	if stored.RevealedHints != 3 || stored.Done {
		t.Errorf("unexpected stored entry: %+v", stored)
	}
}

func TestPatchProgressRejectsBadHintCount(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodPatch, "/api/v1/progress/loc-1", `{"revealedHints":99}`))

	assertErrorCode(t, rec, http.StatusBadRequest, CodeValidationError)
}

func TestProgressStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	env.store.failWith = errBoom

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, authedRequest(t, env, http.MethodGet, "/api/v1/progress", ""))

	assertErrorCode(t, rec, http.StatusInternalServerError, CodeInternalError)
}
