// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/questmap/questmap/internal/models"
)

func photoUploadRequest(t *testing.T, env *testEnv, locationID string, photo []byte, idemKey string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if locationID != "" {
		if err := mw.WriteField("locationId", locationID); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if photo != nil {
		part, err := mw.CreateFormFile("photo", "photo.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(photo); err != nil {
			t.Fatalf("failed to write photo: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, "team-1"))
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	return req
}

func decodeUploadResult(t *testing.T, rec *httptest.ResponseRecorder) *models.UploadResult {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var result models.UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode upload result: %v", err)
	}
	return &result
}

func TestUploadPhoto(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", []byte("jpeg-bytes"), ""))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	result := decodeUploadResult(t, rec)
	if result.PublicID != "hunts/team-1/loc-1" {
		t.Errorf("unexpected public ID: %s", result.PublicID)
	}
	if result.LocationID != "loc-1" || result.Replayed {
		t.Errorf("unexpected result: %+v", result)
	}

	// Uploading marks the location done with the photo URL.
	stored := env.store.progress["team-1"]["loc-1"]
	if !stored.Done || stored.PhotoURL != result.PhotoURL {
		t.Errorf("progress not updated: %+v", stored)
	}
}

func TestUploadPhotoIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	uploader := env.handler.uploader.(*fakeUploader)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", []byte("jpeg-bytes"), "key-123"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first upload failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", []byte("jpeg-bytes"), "key-123"))
	if rec.Code != http.StatusOK {
		t.Fatalf("replay should return 200, got %d", rec.Code)
	}
	result := decodeUploadResult(t, rec)
	if !result.Replayed {
		t.Error("replayed result should be flagged")
	}
	if uploader.uploads != 1 {
		t.Errorf("replay must not re-upload, got %d uploads", uploader.uploads)
	}
}

func TestUploadPhotoDistinctKeysUploadTwice(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	uploader := env.handler.uploader.(*fakeUploader)

	for _, key := range []string{"key-a", "key-b"} {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", []byte("jpeg-bytes"), key))
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload with key %s failed: %d", key, rec.Code)
		}
	}
	if uploader.uploads != 2 {
		t.Errorf("distinct keys should each upload, got %d", uploader.uploads)
	}
}

func TestUploadPhotoMissingLocation(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "", []byte("jpeg-bytes"), ""))

	assertErrorCode(t, rec, http.StatusBadRequest, CodeValidationError)
}

func TestUploadPhotoMissingFile(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", nil, ""))

	assertErrorCode(t, rec, http.StatusBadRequest, CodeValidationError)
}

func TestUploadPhotoTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	// fakeUploader caps files at 5 MiB.
	oversized := bytes.Repeat([]byte("x"), (5<<20)+1)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", oversized, ""))

	assertErrorCode(t, rec, http.StatusRequestEntityTooLarge, CodePayloadTooLarge)
}

func TestUploadPhotoUploaderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	env.handler.uploader.(*fakeUploader).err = errBoom

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", []byte("jpeg-bytes"), ""))

	assertErrorCode(t, rec, http.StatusBadGateway, CodeUploadFailed)
}

func TestUploadPhotoDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	env.handler.uploader = nil

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, photoUploadRequest(t, env, "loc-1", []byte("jpeg-bytes"), ""))

	assertErrorCode(t, rec, http.StatusServiceUnavailable, CodeUploadsDisabled)
}

func TestCollage(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")
	env.store.progress["team-1"] = map[string]models.Progress{
		"loc-b": {TeamID: "team-1", LocationID: "loc-b", PhotoURL: "https://img/b.jpg"},
		"loc-a": {TeamID: "team-1", LocationID: "loc-a", PhotoURL: "https://img/a.jpg"},
		"loc-c": {TeamID: "team-1", LocationID: "loc-c"}, // no photo
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/photos/collage", nil)
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, "team-1"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var payload struct {
		CollageURL string `json:"collageUrl"`
		PhotoCount int    `json:"photoCount"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to decode collage payload: %v", err)
	}
	if payload.PhotoCount != 2 {
		t.Errorf("expected 2 photos, got %d", payload.PhotoCount)
	}
	if !strings.Contains(payload.CollageURL, "res.cloudinary.com/demo") {
		t.Errorf("unexpected collage URL: %s", payload.CollageURL)
	}
	// The base layer is the first photo by location ID; slashes become
	// colons in overlay references.
	if !strings.Contains(payload.CollageURL, "hunts:team-1:loc-b") {
		t.Errorf("overlay reference missing: %s", payload.CollageURL)
	}
}

func TestCollageNoPhotos(t *testing.T) {
	env := newTestEnv(t)
	env.addTeam("team-1", "wild-goose")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/photos/collage", nil)
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, "team-1"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var payload struct {
		CollageURL string `json:"collageUrl"`
		PhotoCount int    `json:"photoCount"`
	}
	_ = json.Unmarshal(raw, &payload)
	if payload.PhotoCount != 0 || payload.CollageURL != "" {
		t.Errorf("empty progress should yield an empty collage: %+v", payload)
	}
}
