// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package services

import (
	"context"
	"time"

	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
)

// JanitorTask is one housekeeping pass.
type JanitorTask func(ctx context.Context) error

// JanitorService runs a task on a fixed interval.
type JanitorService struct {
	name     string
	interval time.Duration
	task     JanitorTask
}

// NewJanitorService creates a janitor. A non-positive interval defaults to
// one minute.
func NewJanitorService(name string, interval time.Duration, task JanitorTask) *JanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JanitorService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *JanitorService) runOnce(ctx context.Context) {
	start := time.Now()
	err := j.task(ctx)
	metrics.RecordJanitorRun(j.name, time.Since(start), err)
	if err != nil && ctx.Err() == nil {
		logging.Ctx(ctx).Warn().Err(err).Str("janitor", j.name).Msg("Janitor task failed")
	}
}

// String implements fmt.Stringer for suture logging.
func (j *JanitorService) String() string {
	return "janitor-" + j.name
}
