// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package models

import "time"

// TicketRequest asks for a short-lived upload URL for one chunk.
// CapturedAt is unix milliseconds on the client clock.
type TicketRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,slug"`
	SessionID  string `json:"session_id" validate:"required,sessionid"`
	Sequence   int    `json:"sequence" validate:"gte=0,lte=1000000"`
	CapturedAt int64  `json:"captured_at" validate:"gt=0"`
	DeviceID   string `json:"device_id,omitempty" validate:"omitempty,max=128,printascii"`
	PageURL    string `json:"page_url,omitempty" validate:"omitempty,max=2048"`
}

// Ticket is the signed upload target returned to the capture script.
type Ticket struct {
	UploadURL       string    `json:"upload_url"`
	Method          string    `json:"method"`
	ContentType     string    `json:"content_type"`
	ContentEncoding string    `json:"content_encoding"`
	BlobKey         string    `json:"blob_key"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// ConfirmRequest records a chunk the client has finished uploading.
type ConfirmRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,slug"`
	SessionID  string `json:"session_id" validate:"required,sessionid"`
	Sequence   int    `json:"sequence" validate:"gte=0,lte=1000000"`
	BlobKey    string `json:"blob_key" validate:"required,blobkey"`
	CapturedAt int64  `json:"captured_at" validate:"gt=0"`
	DeviceID   string `json:"device_id,omitempty" validate:"omitempty,max=128,printascii"`
	PageURL    string `json:"page_url,omitempty" validate:"omitempty,max=2048"`
}

// DirectWriteRequest carries a final chunk in a single call, used by the
// capture script's unload beacon when a ticket round trip is not possible.
type DirectWriteRequest struct {
	CampaignID string  `json:"campaign_id" validate:"required,slug"`
	SessionID  string  `json:"session_id" validate:"required,sessionid"`
	Sequence   int     `json:"sequence" validate:"gte=0,lte=1000000"`
	CapturedAt int64   `json:"captured_at" validate:"gt=0"`
	DeviceID   string  `json:"device_id,omitempty" validate:"omitempty,max=128,printascii"`
	PageURL    string  `json:"page_url,omitempty" validate:"omitempty,max=2048"`
	Events     []Event `json:"events" validate:"required,min=1"`
}

// CompletionRequest sets a session's completion status.
type CompletionRequest struct {
	CampaignID string           `json:"campaign_id" validate:"required,slug"`
	Status     CompletionStatus `json:"status" validate:"required,oneof=completed dropped_off"`
}
