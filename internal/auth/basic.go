// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package auth provides HTTP Basic Authentication for the admin surface
// (settings writes). Team sessions are authenticated separately by the lock
// package; this package never touches lock tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/questmap/questmap/internal/logging"
)

// AdminManager validates admin credentials against a configured bcrypt hash.
type AdminManager struct {
	username     string
	passwordHash []byte
}

// NewAdminManager creates an admin auth manager from a username and a bcrypt
// password hash. The plaintext admin password is never configured or stored.
func NewAdminManager(username, passwordHash string) (*AdminManager, error) {
	if username == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("admin password hash is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash is not a valid bcrypt hash: %w", err)
	}

	return &AdminManager{
		username:     username,
		passwordHash: []byte(passwordHash),
	}, nil
}

// ValidateCredentials validates an HTTP Basic Auth header.
// Returns the username if valid.
func (m *AdminManager) ValidateCredentials(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	credentials, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	parts := strings.SplitN(string(credentials), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid credentials format")
	}

	if !m.validate(parts[0], parts[1]) {
		return "", fmt.Errorf("invalid username or password")
	}

	return parts[0], nil
}

// validate performs constant-time credential comparison. The username check
// uses subtle.ConstantTimeCompare; bcrypt comparison is timing-safe by design.
func (m *AdminManager) validate(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// WWWAuthenticateHeader returns the challenge header sent with 401 responses.
func (m *AdminManager) WWWAuthenticateHeader() string {
	return `Basic realm="Questmap Admin", charset="UTF-8"`
}

// RequireAdmin is middleware gating a route behind admin credentials.
// A nil *AdminManager (admin credentials not configured) rejects everything,
// so the settings write surface is closed by default.
func (m *AdminManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			http.Error(w, "admin access not configured", http.StatusForbidden)
			return
		}

		username, err := m.ValidateCredentials(r.Header.Get("Authorization"))
		if err != nil {
			logging.Debug().Err(err).Msg("Admin auth rejected")
			w.Header().Set("WWW-Authenticate", m.WWWAuthenticateHeader())
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), adminUserContextKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const adminUserContextKey contextKey = "admin-user"

// AdminUserFromContext returns the authenticated admin username, or "".
func AdminUserFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(adminUserContextKey).(string); ok {
		return u
	}
	return ""
}
