// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/questmap/config.yaml",
	"/etc/questmap/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all sensible default values.
// Defaults apply first, then config file, then env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:             "",
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "",
			Name:            "questmap",
			SSLMode:         "require", // hosted Postgres; local dev overrides to disable
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Cloudinary: CloudinaryConfig{
			Enabled:          false,
			CloudName:        "",
			APIKey:           "",
			APISecret:        "",
			UploadFolder:     "hunts",
			UploadTimeout:    30 * time.Second,
			UploadsPerSecond: 5,
			MaxFileBytes:     10 << 20, // 10MB
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8787,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			LockSecret:        "",
			LockTTL:           24 * time.Hour,
			DeviceHintSeed:    "",
			AdminUsername:     "",
			AdminPasswordHash: "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			VerifyLimitReqs:   10,
			VerifyLimitWindow: time.Minute,
			CORSOrigins:       []string{},
		},
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			SweepInterval: 60 * time.Second,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    time.Second,
		},
		Idempotency: IdempotencyConfig{
			Path:     "/data/idempotency",
			TTL:      24 * time.Hour,
			InMemory: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if present)
//  3. Environment variables: override any setting
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// DATABASE_URL -> database.url, LOCK_SECRET -> security.lock_secret
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, env var override first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env var strings into slices for
// known slice fields. YAML-provided slices pass through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables are dropped so unrelated process env does not leak into
// the configuration tree.
//
// Examples:
//   - DATABASE_URL -> database.url
//   - LOCK_SECRET -> security.lock_secret
//   - CLOUDINARY_API_KEY -> cloudinary.api_key
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Database mappings (DATABASE_URL is the Supabase-style DSN)
		"database_url":           "database.url",
		"database_host":          "database.host",
		"database_port":          "database.port",
		"database_user":          "database.user",
		"database_password":      "database.password",
		"database_name":          "database.name",
		"database_ssl_mode":      "database.ssl_mode",
		"database_max_open":      "database.max_open_conns",
		"database_max_idle":      "database.max_idle_conns",
		"database_conn_lifetime": "database.conn_max_lifetime",

		// Cloudinary mappings
		"cloudinary_enabled":       "cloudinary.enabled",
		"cloudinary_cloud_name":    "cloudinary.cloud_name",
		"cloudinary_api_key":       "cloudinary.api_key",
		"cloudinary_api_secret":    "cloudinary.api_secret",
		"cloudinary_upload_folder": "cloudinary.upload_folder",
		"cloudinary_timeout":       "cloudinary.upload_timeout",
		"cloudinary_uploads_per_second": "cloudinary.uploads_per_second",
		"cloudinary_max_file_bytes":     "cloudinary.max_file_bytes",

		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Security mappings
		"lock_secret":         "security.lock_secret",
		"lock_ttl":            "security.lock_ttl",
		"device_hint_seed":    "security.device_hint_seed",
		"admin_username":      "security.admin_username",
		"admin_password_hash": "security.admin_password_hash",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"verify_limit_requests": "security.verify_limit_reqs",
		"verify_limit_window":   "security.verify_limit_window",
		"cors_origins":          "security.cors_origins",

		// Cache mappings
		"cache_ttl":            "cache.ttl",
		"cache_sweep_interval": "cache.sweep_interval",

		// Retry mappings
		"retry_attempts": "retry.attempts",
		"retry_delay":    "retry.delay",

		// Idempotency store mappings
		"idempotency_path":      "idempotency.path",
		"idempotency_ttl":       "idempotency.ttl",
		"idempotency_in_memory": "idempotency.in_memory",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Drop unmapped variables
	return ""
}
