// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// AssetStatus is the derived-asset lifecycle state of a session.
type AssetStatus string

const (
	AssetRaw        AssetStatus = "raw"
	AssetQueued     AssetStatus = "queued"
	AssetProcessing AssetStatus = "processing"
	AssetReady      AssetStatus = "ready"
	AssetFailed     AssetStatus = "failed"
)

// AllAssetStatuses lists every state in lifecycle order.
var AllAssetStatuses = []AssetStatus{AssetRaw, AssetQueued, AssetProcessing, AssetReady, AssetFailed}

// Valid reports whether s is a known state.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetRaw, AssetQueued, AssetProcessing, AssetReady, AssetFailed:
		return true
	}
	return false
}

// CompletionStatus records how a visitor's session ended. It is tracked
// independently of AssetStatus.
type CompletionStatus string

const (
	CompletionNone      CompletionStatus = ""
	CompletionCompleted CompletionStatus = "completed"
	CompletionDropped   CompletionStatus = "dropped_off"
)

// Valid reports whether c is a settable completion value.
func (c CompletionStatus) Valid() bool {
	return c == CompletionCompleted || c == CompletionDropped
}

// Chunk is the index row for one uploaded slice of a session.
// Chunks are immutable once written; (SessionID, Sequence) is unique.
type Chunk struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Sequence   int       `json:"sequence"`
	BlobKey    string    `json:"blob_key"`
	CapturedAt time.Time `json:"captured_at"`
	CampaignID string    `json:"campaign_id"`
	DeviceID   string    `json:"device_id,omitempty"`
	PageURL    string    `json:"page_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionAsset is the per-session derived asset record.
//
// VideoKey and TimelineKey are set if and only if Status is AssetReady.
// UpdatedAt orders the queue (FIFO) and detects stale claims.
type SessionAsset struct {
	SessionID   string           `json:"session_id"`
	Status      AssetStatus      `json:"assets_status"`
	Completion  CompletionStatus `json:"completion_status,omitempty"`
	VideoKey    string           `json:"video_key,omitempty"`
	TimelineKey string           `json:"timeline_key,omitempty"`
	Attempts    int              `json:"attempts"`
	LastError   string           `json:"last_error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Event is the rrweb event envelope. Data is left raw and decoded by the
// timeline engine according to Type.
type Event struct {
	Type      int             `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// MergedSession is a session's chunks assembled into one event log, sorted by
// event timestamp. It is never persisted.
type MergedSession struct {
	SessionID     string   `json:"session_id"`
	CampaignID    string   `json:"campaign_id"`
	Bucket        string   `json:"bucket"`
	PageURLs      []string `json:"page_urls"`
	Events        []Event  `json:"events"`
	ChunkCount    int      `json:"chunk_count"`
	SkippedChunks int      `json:"skipped_chunks"`
}

// QueueStats holds per-state session counts.
type QueueStats struct {
	Raw        int64 `json:"raw"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Ready      int64 `json:"ready"`
	Failed     int64 `json:"failed"`
}

// Total returns the number of sessions with an asset row.
func (s QueueStats) Total() int64 {
	return s.Raw + s.Queued + s.Processing + s.Ready + s.Failed
}

// Add increments the counter for state by n. Unknown states are ignored.
func (s *QueueStats) Add(state AssetStatus, n int64) {
	switch state {
	case AssetRaw:
		s.Raw += n
	case AssetQueued:
		s.Queued += n
	case AssetProcessing:
		s.Processing += n
	case AssetReady:
		s.Ready += n
	case AssetFailed:
		s.Failed += n
	}
}
