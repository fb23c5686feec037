// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package lock implements the team lock scheme: short-lived signed tokens
// asserting that a browser session is "checked in" as a given team, plus the
// device fingerprint used as a soft conflict-detection tag.
//
// Lock tokens are stateless JWTs. Validity is entirely recomputed from the
// signed token; nothing is persisted server-side for the main verify flow.
// There is deliberately no revocation machinery.
package lock

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/questmap/questmap/internal/config"
	"github.com/questmap/questmap/internal/logging"
)

// Subject is the JWT subject claim carried by every lock token.
const Subject = "team-lock"

// Claims represents lock token claims.
type Claims struct {
	TeamID string `json:"teamId"`
	jwt.RegisteredClaims
}

// Manager creates and verifies lock tokens using HMAC-SHA256.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a lock token manager from security configuration.
// The secret must be at least 32 characters; config validation enforces this
// before the manager is constructed, but the check is repeated here so the
// package is safe to use directly.
func NewManager(cfg *config.SecurityConfig) (*Manager, error) {
	if len(cfg.LockSecret) < 32 {
		return nil, fmt.Errorf("lock secret must be at least 32 characters")
	}

	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Manager{
		secret: []byte(cfg.LockSecret),
		ttl:    ttl,
	}, nil
}

// Generate creates a signed lock token for the given team.
//
// The token carries {teamId, iat, exp} with subject "team-lock" and is valid
// for the configured TTL (default 24h). Tokens are stateless and cannot be
// revoked before expiry.
func (m *Manager) Generate(teamID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		TeamID: teamID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign lock token: %w", err)
	}

	return signed, nil
}

// Verify validates a lock token and returns its claims.
//
// It returns nil on ANY failure — expired, malformed, wrong signature, wrong
// subject, missing team ID. Callers cannot distinguish failure modes; the
// token is either a live team lock or it is nothing. The reason is logged at
// debug level for operators.
func (m *Manager) Verify(tokenString string) *Claims {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		logging.Debug().Err(err).Msg("Lock token rejected")
		return nil
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		logging.Debug().Msg("Lock token rejected: invalid claims")
		return nil
	}

	if claims.Subject != Subject || claims.TeamID == "" || claims.ExpiresAt == nil {
		logging.Debug().Str("subject", claims.Subject).Msg("Lock token rejected: claim shape")
		return nil
	}

	return claims
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}
