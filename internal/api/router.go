// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/middleware"
)

// Router assembles the HTTP routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for handler.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Capture script endpoints: any page may call them, campaigns decide.
	r.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(router.chiMiddleware.IngestCORS())
		r.Use(router.chiMiddleware.RateLimitIngest())
		r.Use(APISecurityHeaders)
		r.Post("/tickets", h.IngestTicket)
		r.Post("/chunks", h.IngestConfirm)
		r.Post("/beacon", h.IngestBeacon)
	})

	if h.local != nil {
		r.Route(strings.TrimSuffix(blobstore.BlobRoute, "/"), func(r chi.Router) {
			r.Use(router.chiMiddleware.IngestCORS())
			r.Use(router.chiMiddleware.RateLimitIngest())
			r.Put("/*", h.UploadBlob)
			r.Get("/*", h.DownloadBlob)
		})
	}

	r.Route("/api/v1/sessions/{id}", func(r chi.Router) {
		r.Use(router.chiMiddleware.SessionCORS())

		// Completion comes from the capture script with a campaign token.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitIngest())
			r.Use(APISecurityHeaders)
			r.Put("/completion", h.SessionCompletion)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(APISecurityHeaders)
			r.Use(h.RequireAdmin)
			r.With(middleware.Compression).Get("/events", h.SessionEvents)
			r.With(middleware.Compression).Get("/timeline", h.SessionTimeline)
			r.Post("/assets", h.EnqueueAssets)
			r.Get("/assets", h.AssetStatus)
			r.Delete("/", h.DeleteSession)
		})
	})

	r.Route("/api/v1/queue", func(r chi.Router) {
		r.Use(router.chiMiddleware.CORS())
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders)
		r.Use(h.RequireAdmin)
		r.Get("/stats", h.QueueStats)
		r.Get("/sessions", h.QueueSessions)
	})

	return r
}
