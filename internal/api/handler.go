// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/replayline/internal/auth"
	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/database"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/validation"
)

// Ingestor issues upload tickets and records chunks.
type Ingestor interface {
	RequestUploadTicket(ctx context.Context, req *models.TicketRequest) (*models.Ticket, error)
	ConfirmChunk(ctx context.Context, req *models.ConfirmRequest) (bool, error)
	DirectWrite(ctx context.Context, req *models.DirectWriteRequest) (bool, error)
}

// Playback serves merged sessions from the playback cache.
type Playback interface {
	Get(ctx context.Context, sessionID string) (*models.MergedSession, error)
	Invalidate(sessionID string) bool
}

// AssetQueue is the asset state machine as seen by operators and capture
// scripts.
type AssetQueue interface {
	SetCompletionStatus(ctx context.Context, sessionID string, status models.CompletionStatus) (models.AssetStatus, error)
	Enqueue(ctx context.Context, sessionID string) (models.AssetStatus, error)
	Status(ctx context.Context, sessionID string) (*models.SessionAsset, error)
	Stats(ctx context.Context) (models.QueueStats, error)
	List(ctx context.Context, status models.AssetStatus, limit int) ([]models.SessionAsset, error)
}

// SessionStore is the index database.
type SessionStore interface {
	DeleteSession(ctx context.Context, sessionID string) (*database.DeletedSession, error)
	Ping(ctx context.Context) error
}

// LocalBlobs is implemented by blob stores that serve their own signed
// URLs through this API.
type LocalBlobs interface {
	VerifyToken(token, key, op string) (string, error)
}

// Deps are the services behind the handlers.
type Deps struct {
	Auth     *auth.Authenticator
	Ingest   Ingestor
	Playback Playback
	Queue    AssetQueue
	Sessions SessionStore
	Blobs    blobstore.Store
}

// Config holds handler limits.
type Config struct {
	DownloadURLTTL time.Duration
	MaxBodyBytes   int64
	MaxBlobBytes   int64
	VideoMediaType string
}

// Handler serves the HTTP API.
type Handler struct {
	auth      *auth.Authenticator
	ingest    Ingestor
	playback  Playback
	queue     AssetQueue
	sessions  SessionStore
	blobs     blobstore.Store
	local     LocalBlobs
	cfg       Config
	startTime time.Time
}

// NewHandler creates a Handler. Local blob routes are served only when the
// blob store implements LocalBlobs.
func NewHandler(deps Deps, cfg Config) *Handler {
	if cfg.DownloadURLTTL <= 0 {
		cfg.DownloadURLTTL = time.Hour
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxBlobBytes <= 0 {
		cfg.MaxBlobBytes = 16 << 20
	}
	if cfg.VideoMediaType == "" {
		cfg.VideoMediaType = "video/mp4"
	}
	h := &Handler{
		auth:      deps.Auth,
		ingest:    deps.Ingest,
		playback:  deps.Playback,
		queue:     deps.Queue,
		sessions:  deps.Sessions,
		blobs:     deps.Blobs,
		cfg:       cfg,
		startTime: time.Now(),
	}
	if local, ok := deps.Blobs.(LocalBlobs); ok {
		h.local = local
	}
	return h
}

// decodeJSON reads a size-limited JSON body into v. The content type is
// not checked because sendBeacon posts JSON as text/plain.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			NewResponseWriter(w, r).Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		NewResponseWriter(w, r).BadRequest("Failed to read request body")
		return false
	}
	if len(data) == 0 {
		NewResponseWriter(w, r).BadRequest("Request body is empty")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		NewResponseWriter(w, r).BadRequest("Invalid JSON body")
		return false
	}
	return true
}

// sessionParam validates the {id} path parameter.
func sessionParam(w http.ResponseWriter, r *http.Request, id string) bool {
	if !validation.IsSessionID(id) {
		writeServiceError(w, r, validation.NewFieldError("session_id", "sessionid",
			"session_id must be 1-128 characters of letters, digits, '-' or '_'"))
		return false
	}
	return true
}
