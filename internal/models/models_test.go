// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestConflictError(t *testing.T) {
	tests := []struct {
		current AssetStatus
		want    string
	}{
		{AssetProcessing, "currently processing"},
		{AssetQueued, "already queued"},
		{AssetReady, "already generated"},
	}

	for _, tt := range tests {
		err := fmt.Errorf("enqueue: %w", &ConflictError{SessionID: "s1", Current: tt.current})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("errors.Is(%v, ErrConflict) = false", err)
		}
		var ce *ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("errors.As failed for %v", err)
		}
		if ce.Current != tt.current {
			t.Errorf("Current = %q, want %q", ce.Current, tt.current)
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Error() = %q, want containing %q", err.Error(), tt.want)
		}
	}
}

func TestAssetStatusValid(t *testing.T) {
	for _, s := range AllAssetStatuses {
		if !s.Valid() {
			t.Errorf("%q.Valid() = false", s)
		}
	}
	if AssetStatus("done").Valid() {
		t.Error(`"done".Valid() = true`)
	}
	if CompletionNone.Valid() {
		t.Error("CompletionNone.Valid() = true")
	}
}

func TestQueueStats(t *testing.T) {
	var s QueueStats
	s.Add(AssetQueued, 2)
	s.Add(AssetReady, 3)
	s.Add(AssetStatus("bogus"), 10)

	if s.Queued != 2 || s.Ready != 3 {
		t.Errorf("stats = %+v", s)
	}
	if got := s.Total(); got != 5 {
		t.Errorf("Total() = %d, want 5", got)
	}
}

func TestEventKeepsRawData(t *testing.T) {
	in := `{"type":3,"data":{"source":2,"type":0,"id":7},"timestamp":1700000000123}`

	var ev Event
	if err := json.Unmarshal([]byte(in), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.Type != 3 || ev.Timestamp != 1700000000123 {
		t.Errorf("event = %+v", ev)
	}
	if string(ev.Data) != `{"source":2,"type":0,"id":7}` {
		t.Errorf("Data = %s", ev.Data)
	}
}
