// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package ingest

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/replayline/internal/models"
)

// Payload is the JSON body of a chunk blob.
type Payload struct {
	Events []models.Event `json:"events"`
}

// EncodePayload serializes events the way the capture script uploads them:
// {"events":[...]} compressed with gzip.
func EncodePayload(events []models.Event) ([]byte, error) {
	raw, err := json.Marshal(Payload{Events: events})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	return buf.Bytes(), nil
}
