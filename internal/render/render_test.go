// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package render

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/resilience"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func testSession() *models.MergedSession {
	return &models.MergedSession{
		SessionID: "s1",
		Events:    []models.Event{{Type: 4, Data: json.RawMessage(`{"href":"https://a.example/"}`), Timestamp: 1}},
	}
}

func TestCommandRenderer_CopiesInput(t *testing.T) {
	requireShell(t)
	r, err := NewCommandRenderer(Config{
		Command: "sh",
		Args:    []string{"-c", `cp "$0" "$1"`, InputPlaceholder, OutputPlaceholder},
		WorkDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewCommandRenderer: %v", err)
	}

	out, err := r.Render(context.Background(), Request{SessionID: "s1", Session: testSession()})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.Extension != "mp4" || out.ContentType != "video/mp4" {
		t.Errorf("output type = %s %s", out.Extension, out.ContentType)
	}

	var got models.MergedSession
	if err := json.Unmarshal(out.Data, &got); err != nil {
		t.Fatalf("output is not the input events: %v", err)
	}
	if got.SessionID != "s1" || len(got.Events) != 1 {
		t.Errorf("round-tripped session = %+v", got)
	}
}

func TestCommandRenderer_Failures(t *testing.T) {
	requireShell(t)
	tests := []struct {
		name    string
		args    []string
		timeout time.Duration
		want    string
	}{
		{"non-zero exit", []string{"-c", "echo boom >&2; exit 3"}, 0, "boom"},
		{"no output file", []string{"-c", "true"}, 0, ErrNoOutput.Error()},
		{"timeout", []string{"-c", "exec sleep 5"}, 50 * time.Millisecond, "interrupted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewCommandRenderer(Config{Command: "sh", Args: tt.args, WorkDir: t.TempDir()})
			if err != nil {
				t.Fatalf("NewCommandRenderer: %v", err)
			}
			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}
			_, err = r.Render(ctx, Request{SessionID: "s1", Session: testSession()})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Render error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestCommandRenderer_BreakerOpens(t *testing.T) {
	requireShell(t)
	r, err := NewCommandRenderer(Config{
		Command:        "sh",
		Args:           []string{"-c", "exit 1"},
		WorkDir:        t.TempDir(),
		CircuitBreaker: config.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour},
	})
	if err != nil {
		t.Fatalf("NewCommandRenderer: %v", err)
	}

	req := Request{SessionID: "s1", Session: testSession()}
	for i := 0; i < 2; i++ {
		if _, err := r.Render(context.Background(), req); err == nil {
			t.Fatalf("Render #%d succeeded", i)
		}
	}
	if _, err := r.Render(context.Background(), req); !errors.Is(err, resilience.ErrOpen) {
		t.Errorf("Render after trip error = %v, want ErrOpen", err)
	}
}

func TestNewCommandRenderer_RequiresCommand(t *testing.T) {
	if _, err := NewCommandRenderer(Config{}); err == nil {
		t.Error("NewCommandRenderer(empty) error = nil")
	}
	if _, err := (&CommandRenderer{}).Render(context.Background(), Request{SessionID: "s1"}); err == nil {
		t.Error("Render(nil session) error = nil")
	}
}
