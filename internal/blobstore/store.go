// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key has no blob.
var ErrNotFound = errors.New("blob not found")

// Content types used for stored objects.
const (
	ChunkContentType    = "application/json"
	ChunkEncoding       = "gzip"
	TimelineContentType = "text/plain; charset=utf-8"
)

// Store is a flat key/value blob store with pre-signed URL support.
type Store interface {
	// Name identifies the store (bucket name or local path) in merged sessions.
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes a blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	SignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Close() error
}

// ChunkKey returns a fresh, unique key for one chunk of a session.
func ChunkKey(campaignID, sessionID string, sequence int) string {
	return fmt.Sprintf("%s%06d-%s.json.gz", ChunkPrefix(campaignID, sessionID), sequence, uuid.New().String())
}

// ChunkPrefix is the key prefix shared by all chunks of a session.
func ChunkPrefix(campaignID, sessionID string) string {
	return "chunks/" + campaignID + "/" + sessionID + "/"
}

// TimelineKey returns the key of a session's narrative timeline.
func TimelineKey(sessionID string) string {
	return "assets/" + sessionID + "/timeline.txt"
}

// VideoKey returns the key of a session's rendered replay video.
func VideoKey(sessionID, ext string) string {
	return "assets/" + sessionID + "/replay." + ext
}
