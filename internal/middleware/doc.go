// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - RequestID: request and correlation ids in the response header, request
    context and logging context
  - PrometheusMetrics: request counts, latency and in-flight gauge, labelled
    by chi route pattern so path parameters do not explode cardinality
  - Compression: gzip for large JSON and text responses (merged sessions,
    timelines)

All middleware uses the func(http.Handler) http.Handler shape and can be
passed directly to chi's Use.

Usage:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.With(middleware.Compression).Get("/sessions/{id}/events", h.SessionEvents)
*/
package middleware
