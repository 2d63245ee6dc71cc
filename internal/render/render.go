// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/resilience"
)

// Argument placeholders replaced in Config.Args.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

const (
	maxStderrBytes = 2048

	// waitDelay bounds how long Wait blocks on pipes held open by orphaned
	// grandchildren after the command is killed.
	waitDelay = 2 * time.Second
)

// ErrNoOutput is returned when the command exits cleanly without writing
// the output file.
var ErrNoOutput = errors.New("renderer produced no output")

// Request is one session to render.
type Request struct {
	SessionID string
	Session   *models.MergedSession
}

// Output is a rendered video.
type Output struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Renderer turns a merged session into a video.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Output, error)
}

// Config configures CommandRenderer.
type Config struct {
	Command        string
	Args           []string
	WorkDir        string
	Extension      string
	ContentType    string
	CircuitBreaker config.CircuitBreakerConfig
}

// CommandRenderer runs an external program per session.
type CommandRenderer struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewCommandRenderer creates a CommandRenderer.
func NewCommandRenderer(cfg Config) (*CommandRenderer, error) {
	if cfg.Command == "" {
		return nil, errors.New("render command is required")
	}
	if cfg.Extension == "" {
		cfg.Extension = "mp4"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "video/mp4"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{InputPlaceholder, OutputPlaceholder}
	}
	return &CommandRenderer{
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker[[]byte](resilience.Renderer, cfg.CircuitBreaker, nil),
	}, nil
}

// Render writes the session events to a temp file, runs the command and
// returns the output file contents.
func (r *CommandRenderer) Render(ctx context.Context, req Request) (*Output, error) {
	if req.Session == nil {
		return nil, fmt.Errorf("render %s: no session", req.SessionID)
	}

	data, err := resilience.Execute(r.breaker, func() ([]byte, error) {
		return r.run(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.SessionID, err)
	}
	return &Output{Data: data, ContentType: r.cfg.ContentType, Extension: r.cfg.Extension}, nil
}

func (r *CommandRenderer) run(ctx context.Context, req Request) ([]byte, error) {
	dir, err := os.MkdirTemp(r.cfg.WorkDir, "render-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn().Err(err).Str("dir", dir).Msg("Failed to remove render work dir")
		}
	}()

	input := filepath.Join(dir, "events.json")
	output := filepath.Join(dir, "replay."+r.cfg.Extension)

	payload, err := json.Marshal(req.Session)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	if err := os.WriteFile(input, payload, 0o600); err != nil {
		return nil, fmt.Errorf("write events: %w", err)
	}

	args := make([]string, len(r.cfg.Args))
	for i, a := range r.cfg.Args {
		a = strings.ReplaceAll(a, InputPlaceholder, input)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, output)
	}

	// #nosec G204 -- command and args come from operator configuration
	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrBytes {
			msg = msg[:maxStderrBytes]
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("renderer interrupted: %w", ctxErr)
		}
		if msg != "" {
			return nil, fmt.Errorf("renderer failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("renderer failed: %w", err)
	}

	video, err := os.ReadFile(output)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(video) == 0) {
		return nil, ErrNoOutput
	}
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("session_id", req.SessionID).
		Int("bytes", len(video)).
		Dur("duration", time.Since(start)).
		Msg("Rendered session video")
	return video, nil
}
