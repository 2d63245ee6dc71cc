// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/queue"
	"github.com/tomtom215/replayline/internal/render"
	"github.com/tomtom215/replayline/internal/timeline"
)

// failTimeout bounds recording a failure after the job context is done.
const failTimeout = 10 * time.Second

// Jobs is the queue side of the worker. *queue.Queue implements it.
type Jobs interface {
	GetNextJob(ctx context.Context) (*queue.Job, error)
	MarkReady(ctx context.Context, sessionID, videoKey, timelineKey string) error
	MarkFailed(ctx context.Context, sessionID, reason string) error
	RecoverStale(ctx context.Context, olderThan time.Duration) ([]string, error)
}

// Merger loads a session's events.
type Merger interface {
	Merge(ctx context.Context, sessionID string) (*models.MergedSession, error)
}

// AssetWriter stores generated assets.
type AssetWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Config controls polling and job bounds.
type Config struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
	StaleAfter   time.Duration
}

// Worker processes queued sessions one at a time.
type Worker struct {
	jobs       Jobs
	merger     Merger
	assets     AssetWriter
	renderer   render.Renderer
	subscriber message.Subscriber
	cfg        Config
	name       string
}

// New creates a Worker. subscriber may be nil to rely on polling alone.
func New(jobs Jobs, merger Merger, assets AssetWriter, renderer render.Renderer, subscriber message.Subscriber, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	return &Worker{
		jobs:       jobs,
		merger:     merger,
		assets:     assets,
		renderer:   renderer,
		subscriber: subscriber,
		cfg:        cfg,
		name:       "asset-worker",
	}
}

// Serve implements suture.Service.
func (w *Worker) Serve(ctx context.Context) error {
	if w.cfg.StaleAfter > 0 {
		if _, err := w.jobs.RecoverStale(ctx, w.cfg.StaleAfter); err != nil {
			logging.Error().Err(err).Msg("Failed to recover stale sessions at worker start")
		}
	}

	var wake <-chan *message.Message
	if w.subscriber != nil {
		messages, err := w.subscriber.Subscribe(ctx, queue.TopicQueued)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", queue.TopicQueued, err)
		}
		wake = messages
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	logging.Info().Dur("poll_interval", w.cfg.PollInterval).Dur("job_timeout", w.cfg.JobTimeout).Msg("Asset worker started")

	for {
		w.drain(ctx)

		select {
		case <-ctx.Done():
			logging.Info().Msg("Asset worker stopped")
			return ctx.Err()
		case <-ticker.C:
		case msg, ok := <-wake:
			if !ok {
				// Subscriber closed; fall back to polling.
				wake = nil
				continue
			}
			msg.Ack()
		}
	}
}

// drain processes jobs until the queue is empty or ctx is done.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		processed, err := w.ProcessNext(ctx)
		if err != nil && !errors.Is(err, models.ErrProcessing) {
			logging.Error().Err(err).Msg("Failed to claim next job")
			return
		}
		if !processed {
			return
		}
	}
}

// ProcessNext claims and processes one job. processed is false when the
// queue was empty. A job failure is returned wrapped in
// models.ErrProcessing after the session has been marked failed.
func (w *Worker) ProcessNext(ctx context.Context) (processed bool, err error) {
	job, err := w.jobs.GetNextJob(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	jobCtx := logging.ContextWithSessionID(ctx, job.SessionID)
	jobCtx = logging.ContextWithCorrelationID(jobCtx, logging.GenerateCorrelationID())
	jobCtx, cancel := context.WithTimeout(jobCtx, w.cfg.JobTimeout)
	defer cancel()

	logging.Ctx(jobCtx).Info().Int("attempt", job.Attempt).Msg("Processing session assets")

	start := time.Now()
	jobErr := w.process(jobCtx, job.SessionID)
	if jobErr == nil && jobCtx.Err() != nil {
		jobErr = jobCtx.Err()
	}
	metrics.RecordJob(time.Since(start), jobErr)

	if jobErr != nil {
		reason := jobErr.Error()
		if errors.Is(jobErr, context.DeadlineExceeded) {
			reason = fmt.Sprintf("job exceeded %s: %s", w.cfg.JobTimeout, reason)
		}

		failCtx, failCancel := context.WithTimeout(context.WithoutCancel(jobCtx), failTimeout)
		defer failCancel()
		if err := w.jobs.MarkFailed(failCtx, job.SessionID, reason); err != nil {
			logging.Ctx(jobCtx).Error().Err(err).Msg("Failed to record job failure")
		}
		logging.Ctx(jobCtx).Warn().Err(jobErr).Dur("duration", time.Since(start)).Msg("Session asset generation failed")
		return true, fmt.Errorf("%w: %s: %w", models.ErrProcessing, job.SessionID, jobErr)
	}

	logging.Ctx(jobCtx).Info().Dur("duration", time.Since(start)).Msg("Session assets ready")
	return true, nil
}

func (w *Worker) process(ctx context.Context, sessionID string) error {
	session, err := w.merger.Merge(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if session.ChunkCount > 0 && session.SkippedChunks == session.ChunkCount {
		return fmt.Errorf("merge: none of %d chunks could be loaded", session.ChunkCount)
	}

	result := timeline.Generate(session.Events)
	timelineKey := blobstore.TimelineKey(sessionID)
	if err := w.assets.Put(ctx, timelineKey, []byte(result.Text), blobstore.TimelineContentType); err != nil {
		return fmt.Errorf("upload timeline: %w", err)
	}

	video, err := w.renderer.Render(ctx, render.Request{SessionID: sessionID, Session: session})
	if err != nil {
		return err
	}
	videoKey := blobstore.VideoKey(sessionID, video.Extension)
	if err := w.assets.Put(ctx, videoKey, video.Data, video.ContentType); err != nil {
		return fmt.Errorf("upload video: %w", err)
	}

	if err := w.jobs.MarkReady(ctx, sessionID, videoKey, timelineKey); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Int("events", result.Stats.Events).
		Int("timeline_lines", result.Stats.Lines).
		Int("video_bytes", len(video.Data)).
		Msg("Uploaded session assets")
	return nil
}

// String implements fmt.Stringer for suture logs.
func (w *Worker) String() string {
	return w.name
}
