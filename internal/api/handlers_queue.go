// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/validation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// QueueStats returns session counts per asset state.
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(stats)
}

// QueueSessions lists sessions in one asset state, oldest update first.
// It is the operator's view of stuck or failed work.
func (h *Handler) QueueSessions(w http.ResponseWriter, r *http.Request) {
	status := models.AssetStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.AssetFailed
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeServiceError(w, r, validation.NewFieldError("limit", "range", "limit must be between 1 and "+strconv.Itoa(maxListLimit)))
			return
		}
		limit = n
	}

	assets, err := h.queue.List(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if assets == nil {
		assets = []models.SessionAsset{}
	}
	NewResponseWriter(w, r).Success(assets)
}
