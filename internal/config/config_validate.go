// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateCloudinary(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateDatabase validates database connection settings.
func (c *Config) validateDatabase() error {
	if c.Database.URL != "" {
		u, err := url.Parse(c.Database.URL)
		if err != nil {
			return fmt.Errorf("DATABASE_URL is invalid: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("DATABASE_URL must use postgres:// scheme, got %q", u.Scheme)
		}
		return nil
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required when DATABASE_URL is not set")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("DATABASE_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DATABASE_NAME is required when DATABASE_URL is not set")
	}

	switch c.Database.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("DATABASE_SSL_MODE %q is not a valid libpq sslmode", c.Database.SSLMode)
	}

	return nil
}

// validateCloudinary validates image service settings (only when enabled).
func (c *Config) validateCloudinary() error {
	if !c.Cloudinary.Enabled {
		return nil
	}

	if c.Cloudinary.CloudName == "" {
		return fmt.Errorf("CLOUDINARY_CLOUD_NAME is required when CLOUDINARY_ENABLED=true")
	}
	if c.Cloudinary.APIKey == "" {
		return fmt.Errorf("CLOUDINARY_API_KEY is required when CLOUDINARY_ENABLED=true")
	}
	if c.Cloudinary.APISecret == "" {
		return fmt.Errorf("CLOUDINARY_API_SECRET is required when CLOUDINARY_ENABLED=true")
	}
	if c.Cloudinary.MaxFileBytes <= 0 {
		return fmt.Errorf("CLOUDINARY_MAX_FILE_BYTES must be positive, got %d", c.Cloudinary.MaxFileBytes)
	}

	return nil
}

// validateServer validates HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}

	env := strings.ToLower(c.Server.Environment)
	if env != "development" && env != "production" {
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}

	return nil
}

// validateSecurity validates lock token and rate limit settings.
func (c *Config) validateSecurity() error {
	if c.Security.LockSecret == "" {
		return fmt.Errorf("LOCK_SECRET is required")
	}
	if len(c.Security.LockSecret) < 32 {
		return fmt.Errorf("LOCK_SECRET must be at least 32 characters, got %d", len(c.Security.LockSecret))
	}
	if c.Security.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.Security.LockTTL)
	}

	// Admin credentials are optional (settings writes disabled without them)
	// but must come as a pair.
	if (c.Security.AdminUsername == "") != (c.Security.AdminPasswordHash == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set together")
	}
	if c.Security.AdminPasswordHash != "" && !strings.HasPrefix(c.Security.AdminPasswordHash, "$2") {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.VerifyLimitReqs <= 0 {
			return fmt.Errorf("VERIFY_LIMIT_REQUESTS must be positive, got %d", c.Security.VerifyLimitReqs)
		}
	}

	// Wildcard CORS with credentials is never acceptable in production.
	if strings.ToLower(c.Server.Environment) == "production" {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain a wildcard in production")
			}
		}
	}

	return nil
}

// validateLogging validates logging settings.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
