// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// Postgres queries, the response cache, the upload pipeline, and the team
// lock flow. All collectors register themselves with the default registry
// via promauto at init time.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "questmap_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "questmap_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "questmap_db_query_duration_seconds",
			Help:    "Duration of Postgres queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_db_query_errors_total",
			Help: "Total number of Postgres query errors",
		},
		[]string{"operation", "table"},
	)

	// Response cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "leaderboard", "sponsors", "locations", "settings"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	// Team lock metrics
	LockTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questmap_lock_tokens_issued_total",
			Help: "Total number of team lock tokens issued",
		},
	)

	LockVerifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_lock_verify_failures_total",
			Help: "Total number of rejected team verifications",
		},
		[]string{"reason"}, // "not_found", "bad_token", "conflict"
	)

	// Upload pipeline metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questmap_uploads_total",
			Help: "Total number of photo upload attempts",
		},
		[]string{"outcome"}, // "success", "error", "replayed", "rejected"
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "questmap_upload_duration_seconds",
			Help:    "Duration of Cloudinary upload calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "questmap_upload_bytes",
			Help:    "Size of uploaded photos in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8),
		},
	)

	// Circuit breaker state: 0 closed, 1 half-open, 2 open
	UploaderBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "questmap_uploader_breaker_state",
			Help: "Cloudinary circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Idempotency store metrics
	IdempotencyReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questmap_idempotency_replays_total",
			Help: "Total number of requests answered from the idempotency store",
		},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpload records the outcome of a photo upload attempt.
func RecordUpload(outcome string, duration time.Duration, sizeBytes int64) {
	UploadsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		UploadDuration.Observe(duration.Seconds())
	}
	if sizeBytes > 0 {
		UploadBytes.Observe(float64(sizeBytes))
	}
}
