// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds the readiness database ping.
const readyTimeout = 2 * time.Second

// HealthLive reports that the process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady reports whether the index database answers. Blob storage is
// not probed; ingestion degrades per request when it is down.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.sessions.Ping(ctx); err != nil {
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"Service not ready", map[string]interface{}{"database": err.Error()})
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"ready":      true,
		"blob_store": h.blobs.Name(),
	})
}
