// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package api exposes ingestion, playback and asset endpoints over HTTP using
the chi router.

Route groups:

  - /api/v1/health: liveness and readiness probes, no auth
  - /api/v1/ingest: upload tickets, chunk confirmation and the unload
    beacon, authorized by campaign token (and page origin for tickets and
    confirmations)
  - /api/v1/blobs: local upload and download targets for the badger blob
    backend, authorized by a signed per-key token
  - /api/v1/sessions: playback, timeline, completion status, asset
    generation and operator delete
  - /api/v1/queue: asset queue statistics and per-state listings, admin
    token only
  - /metrics: Prometheus exposition

JSON responses use one envelope:

	{
	  "success": true,
	  "data": {...},
	  "error": {"code": "...", "message": "...", "details": {...}, "request_id": "..."},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

Service errors are mapped to status codes in one place, writeServiceError,
by matching the sentinels in package models.
*/
package api
