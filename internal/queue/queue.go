// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/replayline/internal/database"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/validation"
)

// Store is the persistence the queue needs. *database.DB implements it.
type Store interface {
	GetAsset(ctx context.Context, sessionID string) (*models.SessionAsset, error)
	CreateAsset(ctx context.Context, sessionID string, status models.AssetStatus, now time.Time) (bool, error)
	UpsertCompletion(ctx context.Context, sessionID string, completion models.CompletionStatus, now time.Time) error
	TransitionAsset(ctx context.Context, sessionID string, from []models.AssetStatus, to models.AssetStatus, now time.Time) (bool, error)
	ClaimNextQueued(ctx context.Context, now time.Time) (*models.SessionAsset, error)
	MarkReady(ctx context.Context, sessionID, videoKey, timelineKey string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, sessionID, reason string, now time.Time) (bool, error)
	FailStale(ctx context.Context, cutoff time.Time, reason string, now time.Time) ([]string, error)
	CountAssetsByStatus(ctx context.Context) (models.QueueStats, error)
	ListAssets(ctx context.Context, status models.AssetStatus, limit int) ([]models.SessionAsset, error)
	CountChunks(ctx context.Context, sessionID string) (int, error)
}

var _ Store = (*database.DB)(nil)

// staleReason is recorded on sessions recovered by RecoverStale.
const staleReason = "processing abandoned: worker did not finish before the stale timeout"

// Job is a claimed session.
type Job struct {
	SessionID string
	Attempt   int
	ClaimedAt time.Time
}

// Queue drives session asset state transitions.
type Queue struct {
	store     Store
	publisher message.Publisher
	now       func() time.Time
}

// New creates a Queue. publisher may be nil, in which case no
// notifications are sent.
func New(store Store, publisher message.Publisher) *Queue {
	return &Queue{store: store, publisher: publisher, now: time.Now}
}

// SetCompletionStatus records how a session ended and returns its asset
// state afterwards. dropped_off moves a raw session to queued; completed
// leaves it raw. Sessions already past raw are not changed.
func (q *Queue) SetCompletionStatus(ctx context.Context, sessionID string, status models.CompletionStatus) (models.AssetStatus, error) {
	if err := checkSessionID(sessionID); err != nil {
		return "", err
	}
	if status == models.CompletionNone || !status.Valid() {
		return "", validation.NewFieldError("status", "oneof", "status must be one of: completed dropped_off")
	}

	now := q.now()
	if err := q.store.UpsertCompletion(ctx, sessionID, status, now); err != nil {
		return "", storageErr(err)
	}

	if status == models.CompletionDropped {
		moved, err := q.store.TransitionAsset(ctx, sessionID, []models.AssetStatus{models.AssetRaw}, models.AssetQueued, now)
		if err != nil {
			return "", storageErr(err)
		}
		if moved {
			q.queued(ctx, sessionID, "dropped_off")
		}
	}

	asset, err := q.store.GetAsset(ctx, sessionID)
	if err != nil {
		return "", storageErr(err)
	}
	logging.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Str("completion_status", string(status)).
		Str("assets_status", string(asset.Status)).
		Msg("Recorded session completion")
	return asset.Status, nil
}

// Enqueue queues a session for asset generation on operator request.
// A session without an asset row must have at least one chunk.
func (q *Queue) Enqueue(ctx context.Context, sessionID string) (models.AssetStatus, error) {
	if err := checkSessionID(sessionID); err != nil {
		return "", err
	}

	// Two passes cover a concurrent insert of the row between read and create.
	for attempt := 0; attempt < 2; attempt++ {
		now := q.now()
		asset, err := q.store.GetAsset(ctx, sessionID)
		switch {
		case errors.Is(err, models.ErrAssetNotFound):
			n, err := q.store.CountChunks(ctx, sessionID)
			if err != nil {
				return "", storageErr(err)
			}
			if n == 0 {
				return "", models.ErrSessionNotFound
			}
			created, err := q.store.CreateAsset(ctx, sessionID, models.AssetQueued, now)
			if err != nil {
				return "", storageErr(err)
			}
			if created {
				q.queued(ctx, sessionID, "manual")
				return models.AssetQueued, nil
			}
			continue
		case err != nil:
			return "", storageErr(err)
		}

		switch asset.Status {
		case models.AssetRaw, models.AssetFailed:
			moved, err := q.store.TransitionAsset(ctx, sessionID,
				[]models.AssetStatus{models.AssetRaw, models.AssetFailed}, models.AssetQueued, now)
			if err != nil {
				return "", storageErr(err)
			}
			if moved {
				q.queued(ctx, sessionID, "manual")
				return models.AssetQueued, nil
			}
			continue
		default:
			return "", &models.ConflictError{SessionID: sessionID, Current: asset.Status}
		}
	}

	asset, err := q.store.GetAsset(ctx, sessionID)
	if err != nil {
		return "", storageErr(err)
	}
	return "", &models.ConflictError{SessionID: sessionID, Current: asset.Status}
}

// GetNextJob claims the oldest queued session. It returns nil when there is
// nothing to do.
func (q *Queue) GetNextJob(ctx context.Context) (*Job, error) {
	now := q.now()
	asset, err := q.store.ClaimNextQueued(ctx, now)
	if err != nil {
		return nil, storageErr(err)
	}
	if asset == nil {
		return nil, nil
	}
	metrics.RecordTransition(string(models.AssetProcessing), "claim")
	return &Job{SessionID: asset.SessionID, Attempt: asset.Attempts, ClaimedAt: now}, nil
}

// MarkReady completes a processing session with both asset keys.
func (q *Queue) MarkReady(ctx context.Context, sessionID, videoKey, timelineKey string) error {
	if videoKey == "" || timelineKey == "" {
		return fmt.Errorf("mark %s ready: %w: video and timeline keys are required", sessionID, models.ErrIntegrity)
	}
	moved, err := q.store.MarkReady(ctx, sessionID, videoKey, timelineKey, q.now())
	if err != nil {
		return storageErr(err)
	}
	if !moved {
		return q.conflict(ctx, sessionID)
	}
	metrics.RecordTransition(string(models.AssetReady), "worker")
	return nil
}

// MarkFailed moves a processing session to failed with reason.
func (q *Queue) MarkFailed(ctx context.Context, sessionID, reason string) error {
	moved, err := q.store.MarkFailed(ctx, sessionID, reason, q.now())
	if err != nil {
		return storageErr(err)
	}
	if !moved {
		return q.conflict(ctx, sessionID)
	}
	metrics.RecordTransition(string(models.AssetFailed), "worker")
	return nil
}

// RecoverStale fails processing sessions claimed more than olderThan ago
// and returns their ids.
func (q *Queue) RecoverStale(ctx context.Context, olderThan time.Duration) ([]string, error) {
	now := q.now()
	ids, err := q.store.FailStale(ctx, now.Add(-olderThan), staleReason, now)
	if err != nil {
		return nil, storageErr(err)
	}
	for _, id := range ids {
		metrics.RecordTransition(string(models.AssetFailed), "stale")
		logging.Ctx(ctx).Warn().Str("session_id", id).Dur("stale_after", olderThan).Msg("Recovered stale processing session")
	}
	metrics.WorkerRecoveredJobs.Add(float64(len(ids)))
	return ids, nil
}

// Status returns the asset row of a session.
func (q *Queue) Status(ctx context.Context, sessionID string) (*models.SessionAsset, error) {
	if err := checkSessionID(sessionID); err != nil {
		return nil, err
	}
	asset, err := q.store.GetAsset(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	return asset, nil
}

// Stats returns session counts per state and refreshes the queue gauges.
func (q *Queue) Stats(ctx context.Context) (models.QueueStats, error) {
	stats, err := q.store.CountAssetsByStatus(ctx)
	if err != nil {
		return models.QueueStats{}, storageErr(err)
	}
	metrics.QueueSessions.WithLabelValues(string(models.AssetRaw)).Set(float64(stats.Raw))
	metrics.QueueSessions.WithLabelValues(string(models.AssetQueued)).Set(float64(stats.Queued))
	metrics.QueueSessions.WithLabelValues(string(models.AssetProcessing)).Set(float64(stats.Processing))
	metrics.QueueSessions.WithLabelValues(string(models.AssetReady)).Set(float64(stats.Ready))
	metrics.QueueSessions.WithLabelValues(string(models.AssetFailed)).Set(float64(stats.Failed))
	return stats, nil
}

// List returns up to limit sessions in status, oldest update first.
func (q *Queue) List(ctx context.Context, status models.AssetStatus, limit int) ([]models.SessionAsset, error) {
	if !status.Valid() {
		return nil, validation.NewFieldError("status", "oneof", "status must be one of: raw queued processing ready failed")
	}
	assets, err := q.store.ListAssets(ctx, status, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	return assets, nil
}

func (q *Queue) queued(ctx context.Context, sessionID, trigger string) {
	metrics.RecordTransition(string(models.AssetQueued), trigger)
	logging.Ctx(ctx).Info().Str("session_id", sessionID).Str("trigger", trigger).Msg("Session queued for asset generation")

	if q.publisher == nil {
		return
	}
	if err := q.publisher.Publish(TopicQueued, newQueuedMessage(sessionID)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("Failed to publish queue notification")
	}
}

// conflict reports why a processing-only transition did not apply.
func (q *Queue) conflict(ctx context.Context, sessionID string) error {
	asset, err := q.store.GetAsset(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			return err
		}
		return storageErr(err)
	}
	return &models.ConflictError{SessionID: sessionID, Current: asset.Status}
}

func checkSessionID(sessionID string) error {
	if !validation.IsSessionID(sessionID) {
		return validation.NewFieldError("session_id", "sessionid", "session_id must be 1-128 characters of letters, digits, '-' or '_'")
	}
	return nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", models.ErrStorage, err)
}
