// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package merge

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/replayline/internal/models"
)

// ErrEmptyPayload is returned for a chunk blob with no content.
var ErrEmptyPayload = errors.New("empty chunk payload")

var gzipMagic = []byte{0x1f, 0x8b}

// DecodePayload decodes a chunk blob. The blob may be gzip-compressed or
// plain, and may hold either {"events":[...]} or a bare event array.
func DecodePayload(data []byte) ([]models.Event, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("read gzip: %w", err)
		}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	if data[0] == '[' {
		var events []models.Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		return events, nil
	}

	var payload struct {
		Events []models.Event `json:"events"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload.Events, nil
}
