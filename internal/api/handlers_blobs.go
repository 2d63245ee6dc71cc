// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/validation"
)

var blobKeyPattern = regexp.MustCompile(`^(?:chunks|assets)/[A-Za-z0-9._/-]{1,512}$`)

// blobKey returns the wildcard key of a blob route after checking it is
// well formed and that the request carries a token for it.
func (h *Handler) blobKey(w http.ResponseWriter, r *http.Request, op string) (key, contentType string, ok bool) {
	key = chi.URLParam(r, "*")
	if !blobKeyPattern.MatchString(key) || strings.Contains(key, "..") {
		writeServiceError(w, r, validation.NewFieldError("key", "blobkey", "invalid blob key"))
		return "", "", false
	}
	contentType, err := h.local.VerifyToken(r.URL.Query().Get("token"), key, op)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("blob_key", key).Str("op", op).Msg("Rejected blob token")
		writeServiceError(w, r, fmt.Errorf("%w: %w", models.ErrUnauthorized, err))
		return "", "", false
	}
	return key, contentType, true
}

// UploadBlob accepts the body of a signed upload URL.
func (h *Handler) UploadBlob(w http.ResponseWriter, r *http.Request) {
	key, tokenType, ok := h.blobKey(w, r, blobstore.OpUpload)
	if !ok {
		return
	}
	if tokenType != "" && !sameMediaType(r.Header.Get("Content-Type"), tokenType) {
		NewResponseWriter(w, r).BadRequest("Content-Type does not match the upload ticket")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBlobBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			NewResponseWriter(w, r).Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("Blob exceeds %d bytes", tooLarge.Limit))
			return
		}
		NewResponseWriter(w, r).BadRequest("Failed to read upload body")
		return
	}
	if len(data) == 0 {
		NewResponseWriter(w, r).BadRequest("Upload body is empty")
		return
	}

	if err := h.blobs.Put(r.Context(), key, data, tokenType); err != nil {
		writeServiceError(w, r, fmt.Errorf("%w: put %s: %w", models.ErrStorage, key, err))
		return
	}
	NewResponseWriter(w, r).Created(map[string]interface{}{"key": key, "size": len(data)})
}

// DownloadBlob serves the blob of a signed download URL.
func (h *Handler) DownloadBlob(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.blobKey(w, r, blobstore.OpDownload)
	if !ok {
		return
	}

	data, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			NewResponseWriter(w, r).NotFound("Blob not found")
			return
		}
		writeServiceError(w, r, fmt.Errorf("%w: get %s: %w", models.ErrStorage, key, err))
		return
	}

	contentType, encoding := h.blobContentType(key)
	w.Header().Set("Content-Type", contentType)
	if encoding != "" {
		w.Header().Set("Content-Encoding", encoding)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Str("blob_key", key).Msg("Failed to write blob response")
	}
}

// blobContentType derives the stored type from the key layout.
func (h *Handler) blobContentType(key string) (contentType, encoding string) {
	switch {
	case strings.HasSuffix(key, ".json.gz"):
		return blobstore.ChunkContentType, blobstore.ChunkEncoding
	case strings.HasSuffix(key, ".txt"):
		return blobstore.TimelineContentType, ""
	case strings.HasPrefix(key, "assets/"):
		return h.cfg.VideoMediaType, ""
	default:
		return "application/octet-stream", ""
	}
}

func sameMediaType(got, want string) bool {
	if got == "" {
		return true
	}
	g, _, err := mime.ParseMediaType(got)
	if err != nil {
		return false
	}
	w, _, err := mime.ParseMediaType(want)
	if err != nil {
		return false
	}
	return g == w
}
