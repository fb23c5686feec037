// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package upload

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/metrics"
)

// uploadBreaker shields the service from a degraded Cloudinary: five
// consecutive failures open the circuit for thirty seconds.
type uploadBreaker struct {
	cb *gobreaker.CircuitBreaker[*UploadResponse]
}

func newUploadBreaker() *uploadBreaker {
	settings := gobreaker.Settings{
		Name:        "cloudinary",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
			metrics.UploaderBreakerState.Set(breakerStateValue(to))
		},
	}

	return &uploadBreaker{cb: gobreaker.NewCircuitBreaker[*UploadResponse](settings)}
}

func (b *uploadBreaker) execute(fn func() (*UploadResponse, error)) (*UploadResponse, error) {
	return b.cb.Execute(fn)
}

// state returns the current breaker state as a string for health reporting.
func (b *uploadBreaker) state() string {
	return b.cb.State().String()
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
