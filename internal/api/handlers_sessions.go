// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/replayline/internal/auth"
	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/timeline"
	"github.com/tomtom215/replayline/internal/validation"
)

// SessionEvents returns the merged event stream of a session for playback.
func (h *Handler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !sessionParam(w, r, id) {
		return
	}
	session, err := h.playback.Get(logging.ContextWithSessionID(r.Context(), id), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(session)
}

// SessionTimeline returns the narrative timeline of a session as plain
// text, or as structured lines with ?format=json.
func (h *Handler) SessionTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !sessionParam(w, r, id) {
		return
	}
	session, err := h.playback.Get(logging.ContextWithSessionID(r.Context(), id), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result := timeline.Generate(session.Events)
	if r.URL.Query().Get("format") == "json" {
		NewResponseWriter(w, r).Success(result)
		return
	}

	w.Header().Set("Content-Type", blobstore.TimelineContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(result.Text)); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write timeline response")
	}
}

type completionResult struct {
	SessionID        string                  `json:"session_id"`
	CompletionStatus models.CompletionStatus `json:"completion_status"`
	AssetsStatus     models.AssetStatus      `json:"assets_status"`
}

// SessionCompletion records how a session ended. A dropped-off session is
// queued for asset generation.
func (h *Handler) SessionCompletion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !sessionParam(w, r, id) {
		return
	}
	var req models.CompletionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeServiceError(w, r, verr)
		return
	}
	if err := h.auth.AuthorizeToken(req.CampaignID, auth.CampaignToken(r)); err != nil {
		h.logRejected(r, req.CampaignID, err)
		writeServiceError(w, r, err)
		return
	}

	status, err := h.queue.SetCompletionStatus(logging.ContextWithSessionID(r.Context(), id), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(completionResult{SessionID: id, CompletionStatus: req.Status, AssetsStatus: status})
}

type enqueueResult struct {
	SessionID    string             `json:"session_id"`
	AssetsStatus models.AssetStatus `json:"assets_status"`
}

// EnqueueAssets queues a session for asset generation.
func (h *Handler) EnqueueAssets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !sessionParam(w, r, id) {
		return
	}
	status, err := h.queue.Enqueue(logging.ContextWithSessionID(r.Context(), id), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Accepted(enqueueResult{SessionID: id, AssetsStatus: status})
}

// assetView is the asset status returned to operators. URLs are present
// only for ready sessions.
type assetView struct {
	*models.SessionAsset
	VideoURL    string     `json:"video_url,omitempty"`
	TimelineURL string     `json:"timeline_url,omitempty"`
	ExpiresAt   *time.Time `json:"urls_expire_at,omitempty"`
}

// AssetStatus returns the asset state of a session, with signed download
// URLs once assets are ready.
func (h *Handler) AssetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !sessionParam(w, r, id) {
		return
	}
	ctx := logging.ContextWithSessionID(r.Context(), id)
	asset, err := h.queue.Status(ctx, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	view := assetView{SessionAsset: asset}
	if asset.Status == models.AssetReady {
		if asset.VideoKey == "" || asset.TimelineKey == "" {
			writeServiceError(w, r, fmt.Errorf("%w: session %s is ready without asset keys", models.ErrIntegrity, id))
			return
		}
		expires := time.Now().Add(h.cfg.DownloadURLTTL).UTC()
		if view.VideoURL, err = h.blobs.SignedDownloadURL(ctx, asset.VideoKey, h.cfg.DownloadURLTTL); err != nil {
			writeServiceError(w, r, fmt.Errorf("%w: sign video url: %w", models.ErrStorage, err))
			return
		}
		if view.TimelineURL, err = h.blobs.SignedDownloadURL(ctx, asset.TimelineKey, h.cfg.DownloadURLTTL); err != nil {
			writeServiceError(w, r, fmt.Errorf("%w: sign timeline url: %w", models.ErrStorage, err))
			return
		}
		view.ExpiresAt = &expires
	}
	NewResponseWriter(w, r).Success(view)
}

type deleteResult struct {
	SessionID     string `json:"session_id"`
	DeletedChunks int    `json:"deleted_chunks"`
	DeletedBlobs  int    `json:"deleted_blobs"`
	OrphanedBlobs int    `json:"orphaned_blobs"`
}

// DeleteSession removes a session's index rows, blobs and cache entry.
// Index rows go first so a failed blob delete leaves an unreferenced blob
// rather than a row pointing at nothing.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !sessionParam(w, r, id) {
		return
	}
	ctx := logging.ContextWithSessionID(r.Context(), id)

	deleted, err := h.sessions.DeleteSession(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrSessionNotFound) {
			err = fmt.Errorf("%w: %w", models.ErrStorage, err)
		}
		writeServiceError(w, r, err)
		return
	}

	result := deleteResult{SessionID: id, DeletedChunks: len(deleted.ChunkKeys)}
	for _, key := range deleted.BlobKeys() {
		if err := h.blobs.Delete(ctx, key); err != nil {
			result.OrphanedBlobs++
			logging.Ctx(ctx).Warn().Err(err).Str("blob_key", key).Msg("Failed to delete session blob")
			continue
		}
		result.DeletedBlobs++
	}
	h.playback.Invalidate(id)

	logging.Ctx(ctx).Info().
		Int("chunks", result.DeletedChunks).
		Int("blobs", result.DeletedBlobs).
		Int("orphaned_blobs", result.OrphanedBlobs).
		Msg("Session deleted")
	NewResponseWriter(w, r).Success(result)
}
