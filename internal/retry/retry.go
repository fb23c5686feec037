// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package retry provides exponential-backoff retries for calls to external
// services (Cloudinary, Postgres). Client errors are never retried; waiting
// between attempts honors context cancellation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/questmap/questmap/internal/logging"
)

// Permanent wraps an error that must not be retried, such as a 4xx response
// from an upstream service.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Abort marks err as non-retryable.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// Policy describes a backoff schedule: Attempts tries total, with the wait
// doubling from InitialDelay after each failure.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
}

// DefaultPolicy matches the backoff used for upstream calls throughout the
// service: three attempts at 1s, 2s, 4s.
var DefaultPolicy = Policy{Attempts: 3, InitialDelay: time.Second}

// Do executes fn with exponential backoff on failure. The context is checked
// before every attempt and during backoff waits; if it is canceled the
// context error is returned immediately. A Permanent error aborts the loop
// and is returned unwrapped.
func Do(ctx context.Context, p Policy, op string, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	delay := p.InitialDelay

	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}

		if attempt < p.Attempts-1 {
			logging.Warn().Err(err).Str("operation", op).Int("attempt", attempt+1).Int("max_attempts", p.Attempts).Dur("delay", delay).Msg("Retry attempt")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached for %s: %w", op, err)
}
