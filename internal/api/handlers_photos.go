// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/questmap/questmap/internal/idempotency"
	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/models"
	"github.com/questmap/questmap/internal/upload"
)

const defaultMaxPhotoBytes = 10 << 20

// UploadPhoto handles POST /api/v1/photos: a multipart photo for one
// location, uploaded to the image service and recorded in the team's
// progress. An Idempotency-Key header makes the operation safe to retry:
// a replayed key returns the stored result without a second upload.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUploadsDisabled, "photo uploads are not configured", nil)
		return
	}

	teamID := lock.TeamIDFromContext(r.Context())

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		var stored models.UploadResult
		if err := h.idem.Get(teamID+":"+idemKey, &stored); err == nil {
			stored.Replayed = true
			metrics.RecordUpload("replayed", 0, 0)
			respondSuccess(w, r, http.StatusOK, &stored)
			return
		} else if !errors.Is(err, idempotency.ErrKeyNotFound) {
			logging.Warn().Err(err).Msg("Idempotency lookup failed, proceeding with upload")
		}
	}

	maxBytes := h.uploader.MaxFileBytes()
	if maxBytes <= 0 {
		maxBytes = defaultMaxPhotoBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		metrics.RecordUpload("rejected", 0, 0)
		respondError(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "photo exceeds the size limit", err)
		return
	}

	locationID := r.FormValue("locationId")
	if locationID == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidationError, "locationId is required", nil)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidationError, "photo file is required", err)
		return
	}
	defer func() { _ = file.Close() }()

	photo, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to read photo", err)
		return
	}
	if int64(len(photo)) > maxBytes {
		metrics.RecordUpload("rejected", 0, int64(len(photo)))
		respondError(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "photo exceeds the size limit", nil)
		return
	}

	publicID := fmt.Sprintf("%s/%s", teamID, locationID)
	uploaded, err := h.uploader.Upload(r.Context(), photo, publicID)
	if err != nil {
		respondError(w, r, http.StatusBadGateway, CodeUploadFailed, "image service rejected the upload", err)
		return
	}

	if err := h.store.SetPhotoURL(r.Context(), teamID, locationID, uploaded.SecureURL); err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "photo uploaded but progress update failed", err)
		return
	}

	result := &models.UploadResult{
		PhotoURL:   uploaded.SecureURL,
		PublicID:   uploaded.PublicID,
		LocationID: locationID,
	}

	if idemKey != "" && h.idem != nil {
		if err := h.idem.Put(teamID+":"+idemKey, result); err != nil {
			logging.Warn().Err(err).Msg("Failed to store idempotency result")
		}
	}

	ctxLogger := logging.Ctx(r.Context())
	ctxLogger.Info().
		Str("team_id", teamID).
		Str("location_id", locationID).
		Str("public_id", uploaded.PublicID).
		Msg("Photo uploaded")

	respondSuccess(w, r, http.StatusCreated, result)
}

// Collage handles GET /api/v1/photos/collage: a Cloudinary transformation
// URL assembling the team's uploaded photos into a grid, ordered by
// location ID for a stable layout.
func (h *Handler) Collage(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUploadsDisabled, "photo uploads are not configured", nil)
		return
	}

	teamID := lock.TeamIDFromContext(r.Context())

	progress, err := h.store.GetProgress(r.Context(), teamID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load progress", err)
		return
	}

	var locationIDs []string
	for locationID, p := range progress {
		if p.PhotoURL != "" {
			locationIDs = append(locationIDs, locationID)
		}
	}
	sort.Strings(locationIDs)

	publicIDs := make([]string, 0, len(locationIDs))
	for _, locationID := range locationIDs {
		publicIDs = append(publicIDs, h.photoPublicID(teamID, locationID))
	}

	url := upload.CollageURL(h.uploader.CloudName(), publicIDs)
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"collageUrl": url,
		"photoCount": len(publicIDs),
	})
}

// photoPublicID reconstructs the Cloudinary public ID used at upload time.
func (h *Handler) photoPublicID(teamID, locationID string) string {
	folder := h.cfg.Cloudinary.UploadFolder
	if folder == "" {
		return fmt.Sprintf("%s/%s", teamID, locationID)
	}
	return fmt.Sprintf("%s/%s/%s", folder, teamID, locationID)
}
