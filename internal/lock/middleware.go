// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package lock

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/questmap/questmap/internal/logging"
)

type contextKey string

// ClaimsContextKey is the context key under which verified lock claims are stored.
const ClaimsContextKey contextKey = "lock-claims"

// RequireLock is middleware that rejects requests without a live lock token.
// The token is read from the Authorization header as a bearer token; verified
// claims are stored in the request context for handlers.
func (m *Manager) RequireLock(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w, r, "lock token required")
			return
		}

		claims := m.Verify(token)
		if claims == nil {
			writeUnauthorized(w, r, "lock token invalid or expired")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext retrieves verified lock claims from the request context.
// Returns nil when the request did not pass through RequireLock.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(ClaimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}

// TeamIDFromContext returns the locked team ID, or empty string.
func TeamIDFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.TeamID
	}
	return ""
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeUnauthorized writes a 401 in the standard error envelope. The lock
// package writes this envelope itself rather than importing the api package,
// which depends on this one.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)

	body := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":        "UNAUTHORIZED",
			"message":     message,
			"status_code": http.StatusUnauthorized,
			"request_id":  logging.RequestIDFromContext(r.Context()),
		},
		"meta": map[string]interface{}{
			"timestamp": time.Now(),
		},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode unauthorized response")
	}
}
