// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/questmap/questmap/internal/auth"
	"github.com/questmap/questmap/internal/middleware"
)

// Router assembles the HTTP surface: handlers, lock middleware, optional
// admin auth, and the middleware stack.
type Router struct {
	handler *Handler
	chimw   *ChiMiddleware
	admin   *auth.AdminManager
}

// NewRouter wires the router. admin may be nil; the settings write endpoint
// then responds 403.
func NewRouter(handler *Handler, chimw *ChiMiddleware, admin *auth.AdminManager) *Router {
	return &Router{handler: handler, chimw: chimw, admin: admin}
}

// Setup builds the chi handler tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chimw.CORS())

	// Health endpoints: permissive limits for monitoring.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chimw.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Team verification: strict limits, no lock token required.
	r.Group(func(r chi.Router) {
		r.Use(router.chimw.RateLimitVerify())
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Post("/api/v1/team/verify", router.handler.VerifyTeam)
	})

	// Team-scoped endpoints: require a live lock token.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Group(func(r chi.Router) {
			r.Use(router.handler.locks.RequireLock)

			r.Get("/team/current", router.handler.CurrentTeam)

			r.Get("/progress", router.handler.GetProgress)
			r.Put("/progress", router.handler.PutProgress)
			r.Patch("/progress/{locationId}", router.handler.PatchProgress)

			r.Post("/photos", router.handler.UploadPhoto)
			r.Get("/photos/collage", router.handler.Collage)
		})

		// Hunt content reads: public, cached.
		r.Route("/hunts/{orgId}/{huntId}", func(r chi.Router) {
			r.Get("/sponsors", router.handler.Sponsors)
			r.Get("/locations", router.handler.Locations)
			r.Get("/leaderboard", router.handler.Leaderboard)
			r.Get("/settings", router.handler.GetSettingsPublic)

			r.With(router.handler.locks.RequireLock).Get("/active", router.handler.Active)

			// Settings writes gated behind admin basic auth. RequireAdmin
			// handles the unconfigured (nil manager) case with a 403.
			r.With(router.admin.RequireAdmin).Put("/settings", router.handler.UpdateSettings)
		})
	})

	// Prometheus scrape endpoint, outside the API envelope.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
