// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package upload talks to the Cloudinary image service: signed photo uploads
// with retry, rate limiting, and a circuit breaker, plus collage URL
// generation from uploaded public IDs.
package upload

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/questmap/questmap/internal/config"
	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/metrics"
	"github.com/questmap/questmap/internal/retry"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// UploadResponse is the subset of Cloudinary's upload response we use.
type UploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Bytes     int64  `json:"bytes"`
}

// Client is a Cloudinary signed-upload client.
type Client struct {
	cfg         *config.CloudinaryConfig
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	breaker     *uploadBreaker
	retryPolicy retry.Policy
	now         func() time.Time
}

// NewClient builds the upload client. Returns nil when Cloudinary is
// disabled in config; callers treat a nil client as "uploads unavailable".
func NewClient(cfg *config.CloudinaryConfig, retryCfg *config.RetryConfig) *Client {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.UploadsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UploadsPerSecond), 1)
	}

	policy := retry.DefaultPolicy
	if retryCfg != nil && retryCfg.Attempts > 0 {
		policy = retry.Policy{Attempts: retryCfg.Attempts, InitialDelay: retryCfg.Delay}
	}

	return &Client{
		cfg:         cfg,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
		breaker:     newUploadBreaker(),
		retryPolicy: policy,
		now:         time.Now,
	}
}

// CloudName exposes the configured cloud for URL generation.
func (c *Client) CloudName() string {
	return c.cfg.CloudName
}

// MaxFileBytes is the configured per-photo size cap.
func (c *Client) MaxFileBytes() int64 {
	return c.cfg.MaxFileBytes
}

// BreakerState reports the circuit breaker state for health checks.
func (c *Client) BreakerState() string {
	return c.breaker.state()
}

// Upload sends one photo to Cloudinary under publicID. The call is rate
// limited, circuit-broken, and retried with backoff; a 4xx from Cloudinary
// fails immediately.
func (c *Client) Upload(ctx context.Context, photo []byte, publicID string) (*UploadResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("upload rate limit wait: %w", err)
		}
	}

	start := time.Now()
	var resp *UploadResponse
	err := retry.Do(ctx, c.retryPolicy, "cloudinary_upload", func() error {
		var attemptErr error
		resp, attemptErr = c.breaker.execute(func() (*UploadResponse, error) {
			return c.doUpload(ctx, photo, publicID)
		})
		return attemptErr
	})
	if err != nil {
		metrics.RecordUpload("error", time.Since(start), int64(len(photo)))
		return nil, err
	}

	metrics.RecordUpload("success", time.Since(start), int64(len(photo)))
	return resp, nil
}

func (c *Client) doUpload(ctx context.Context, photo []byte, publicID string) (*UploadResponse, error) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	if c.cfg.UploadFolder != "" {
		params["folder"] = c.cfg.UploadFolder
	}
	signature := signParams(params, c.cfg.APISecret)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, val := range params {
		if err := writer.WriteField(key, val); err != nil {
			return nil, retry.Abort(fmt.Errorf("write field %s: %w", key, err))
		}
	}
	if err := writer.WriteField("api_key", c.cfg.APIKey); err != nil {
		return nil, retry.Abort(fmt.Errorf("write api_key: %w", err))
	}
	if err := writer.WriteField("signature", signature); err != nil {
		return nil, retry.Abort(fmt.Errorf("write signature: %w", err))
	}
	part, err := writer.CreateFormFile("file", "photo")
	if err != nil {
		return nil, retry.Abort(fmt.Errorf("create file part: %w", err))
	}
	if _, err := part.Write(photo); err != nil {
		return nil, retry.Abort(fmt.Errorf("write photo: %w", err))
	}
	if err := writer.Close(); err != nil {
		return nil, retry.Abort(fmt.Errorf("close multipart writer: %w", err))
	}

	url := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, retry.Abort(fmt.Errorf("build upload request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("cloudinary returned %d: %s", httpResp.StatusCode, truncate(string(respBody), 200))
		// Client errors are not transient; do not retry them.
		if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
			return nil, retry.Abort(err)
		}
		return nil, err
	}

	var result UploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	logging.Debug().Str("public_id", result.PublicID).Int64("bytes", result.Bytes).Msg("Photo uploaded")
	return &result, nil
}

// signParams produces Cloudinary's request signature: the parameters sorted
// by key, joined as key=value with &, with the API secret appended, hashed
// with SHA-1.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
