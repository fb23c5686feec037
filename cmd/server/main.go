// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package main is the entry point for the Questmap server.
//
// Questmap is the backend for a location-based scavenger-hunt web app:
// teams check in with an access code, track progress through hunt
// locations, upload photos per location, and compete on a leaderboard.
//
// Components initialize in order:
//
//  1. Configuration: Koanf v2 layering defaults, config.yaml, env vars
//  2. Logging: zerolog, level and format from config
//  3. Postgres: database/sql over the pgx stdlib driver
//  4. Idempotency store: BadgerDB, keyed upload results with TTL
//  5. Lock manager: HMAC-signed team lock tokens
//  6. Cloudinary client: rate-limited, circuit-broken photo uploads
//  7. HTTP API: chi router with the /api/v1 surface and /metrics
//  8. Supervisor tree: suture restarts the server and maintenance loop
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/questmap/questmap/internal/api"
	"github.com/questmap/questmap/internal/auth"
	"github.com/questmap/questmap/internal/cache"
	"github.com/questmap/questmap/internal/config"
	"github.com/questmap/questmap/internal/idempotency"
	"github.com/questmap/questmap/internal/lock"
	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/store"
	"github.com/questmap/questmap/internal/supervisor"
	"github.com/questmap/questmap/internal/supervisor/services"
	"github.com/questmap/questmap/internal/upload"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("Invalid configuration")
	}

	api.Version = version
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Questmap")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	db, err := store.Open(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database connected")

	// Idempotency store (BadgerDB)
	idem, err := idempotency.Open(&cfg.Idempotency)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open idempotency store")
	}
	defer func() {
		if err := idem.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing idempotency store")
		}
	}()

	// Team lock tokens
	locks, err := lock.NewManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create lock manager")
	}

	// Admin basic auth is optional; without credentials the settings write
	// surface stays closed.
	var admin *auth.AdminManager
	if cfg.Security.AdminUsername != "" && cfg.Security.AdminPasswordHash != "" {
		admin, err = auth.NewAdminManager(cfg.Security.AdminUsername, cfg.Security.AdminPasswordHash)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to configure admin auth")
		}
		logging.Info().Str("username", cfg.Security.AdminUsername).Msg("Admin auth configured")
	} else {
		logging.Warn().Msg("Admin credentials not configured; settings writes are disabled")
	}

	// Cloudinary; nil when uploads are disabled.
	uploader := upload.NewClient(&cfg.Cloudinary, &cfg.Retry)
	if uploader == nil {
		logging.Warn().Msg("Cloudinary disabled; photo uploads unavailable")
	} else {
		logging.Info().Str("cloud_name", cfg.Cloudinary.CloudName).Msg("Cloudinary client ready")
	}

	// Response cache with background expiry sweep.
	responseCache := cache.NewWithSweep(cfg.Cache.TTL, cfg.Cache.SweepInterval)
	defer responseCache.Stop()

	// HTTP surface
	handler := api.NewHandler(db, locks, responseCache, uploaderOrNil(uploader), idem, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(&cfg.Security), admin).Setup()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// Supervisor tree
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build supervisor tree")
	}

	tree.AddMaintenanceService(services.NewMaintenanceService(idem, responseCache, 10*time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}

// uploaderOrNil avoids handing the handler a typed-nil interface: a nil
// *upload.Client must stay a nil api.Uploader so the disabled checks fire.
func uploaderOrNil(c *upload.Client) api.Uploader {
	if c == nil {
		return nil
	}
	return c
}
