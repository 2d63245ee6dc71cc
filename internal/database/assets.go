// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/replayline/internal/models"
)

const selectAsset = `
	SELECT session_id, assets_status, completion_status, video_key, timeline_key,
		attempts, last_error, created_at, updated_at
	FROM session_assets`

const assetReturning = `
	RETURNING session_id, assets_status, completion_status, video_key, timeline_key,
		attempts, last_error, created_at, updated_at`

// maxErrorLen bounds last_error so a noisy renderer cannot bloat the table.
const maxErrorLen = 1024

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.SessionAsset, error) {
	var (
		a                                            models.SessionAsset
		status                                       string
		completion, videoKey, timelineKey, lastError sql.NullString
		createdAt, updatedAt                         int64
	)
	if err := row.Scan(&a.SessionID, &status, &completion, &videoKey, &timelineKey,
		&a.Attempts, &lastError, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Status = models.AssetStatus(status)
	a.Completion = models.CompletionStatus(completion.String)
	a.VideoKey = videoKey.String
	a.TimelineKey = timelineKey.String
	a.LastError = lastError.String
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// GetAsset returns a session's asset row or models.ErrAssetNotFound.
func (db *DB) GetAsset(ctx context.Context, sessionID string) (a *models.SessionAsset, err error) {
	start := time.Now()
	defer func() { observe("get", "session_assets", start, err) }()

	a, err = scanAsset(db.conn.QueryRowContext(ctx, selectAsset+` WHERE session_id = ?`, sessionID))
	if isNoRows(err) {
		err = nil
		return nil, models.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", sessionID, err)
	}
	return a, nil
}

// CreateAsset inserts an asset row in the given state. It returns false if
// the row already exists; the existing row is left untouched.
func (db *DB) CreateAsset(ctx context.Context, sessionID string, status models.AssetStatus, now time.Time) (created bool, err error) {
	start := time.Now()
	defer func() { observe("create", "session_assets", start, err) }()

	ms := toMillis(now)
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_assets (session_id, assets_status, attempts, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT (session_id) DO NOTHING`,
		sessionID, string(status), ms, ms)
	if err != nil {
		return false, fmt.Errorf("create asset %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create asset %s: rows affected: %w", sessionID, err)
	}
	return n > 0, nil
}

// UpsertCompletion records a completion status, creating the row in the raw
// state if it does not exist. assets_status and updated_at of an existing
// row are not changed.
func (db *DB) UpsertCompletion(ctx context.Context, sessionID string, completion models.CompletionStatus, now time.Time) (err error) {
	start := time.Now()
	defer func() { observe("upsert_completion", "session_assets", start, err) }()

	ms := toMillis(now)
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO session_assets (session_id, assets_status, completion_status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET completion_status = excluded.completion_status`,
		sessionID, string(models.AssetRaw), string(completion), ms, ms)
	if err != nil {
		return fmt.Errorf("upsert completion %s: %w", sessionID, err)
	}
	return nil
}

// TransitionAsset moves a session to `to` if its current state is one of
// from. It returns false when the row is missing or in another state.
// Moving to queued clears last_error.
func (db *DB) TransitionAsset(ctx context.Context, sessionID string, from []models.AssetStatus, to models.AssetStatus, now time.Time) (moved bool, err error) {
	start := time.Now()
	defer func() { observe("transition", "session_assets", start, err) }()

	if len(from) == 0 {
		return false, fmt.Errorf("transition %s: no source states", sessionID)
	}

	args := []any{string(to), toMillis(now)}
	set := "assets_status = ?, updated_at = ?"
	if to == models.AssetQueued {
		set += ", last_error = NULL"
	}
	args = append(args, sessionID)
	placeholders := make([]string, len(from))
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	query := `UPDATE session_assets SET ` + set +
		` WHERE session_id = ? AND assets_status IN (` + strings.Join(placeholders, ", ") + `)`
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition %s to %s: %w", sessionID, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition %s to %s: rows affected: %w", sessionID, to, err)
	}
	return n > 0, nil
}

// ClaimNextQueued atomically moves the oldest queued session to processing
// and returns it. It returns nil, nil when nothing is queued or another
// worker won the race for the same row.
func (db *DB) ClaimNextQueued(ctx context.Context, now time.Time) (a *models.SessionAsset, err error) {
	start := time.Now()
	defer func() { observe("claim", "session_assets", start, err) }()

	row := db.conn.QueryRowContext(ctx, `
		UPDATE session_assets
		SET assets_status = ?, attempts = attempts + 1, updated_at = ?
		WHERE session_id = (
			SELECT session_id FROM session_assets
			WHERE assets_status = ?
			ORDER BY updated_at, session_id
			LIMIT 1
		)
		AND assets_status = ?`+assetReturning,
		string(models.AssetProcessing), toMillis(now), string(models.AssetQueued), string(models.AssetQueued))

	a, err = scanAsset(row)
	switch {
	case err == nil:
		return a, nil
	case isNoRows(err):
		err = nil
		return nil, nil
	case IsContention(err):
		err = nil
		return nil, nil
	default:
		return nil, fmt.Errorf("claim queued asset: %w", err)
	}
}

// MarkReady moves a processing session to ready with both asset keys set in
// the same statement.
func (db *DB) MarkReady(ctx context.Context, sessionID, videoKey, timelineKey string, now time.Time) (moved bool, err error) {
	start := time.Now()
	defer func() { observe("mark_ready", "session_assets", start, err) }()

	if videoKey == "" || timelineKey == "" {
		return false, fmt.Errorf("mark %s ready: %w: both asset keys are required", sessionID, models.ErrIntegrity)
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE session_assets
		SET assets_status = ?, video_key = ?, timeline_key = ?, last_error = NULL, updated_at = ?
		WHERE session_id = ? AND assets_status = ?`,
		string(models.AssetReady), videoKey, timelineKey, toMillis(now), sessionID, string(models.AssetProcessing))
	if err != nil {
		return false, fmt.Errorf("mark %s ready: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark %s ready: rows affected: %w", sessionID, err)
	}
	return n > 0, nil
}

// MarkFailed moves a processing session to failed and clears asset keys.
func (db *DB) MarkFailed(ctx context.Context, sessionID, reason string, now time.Time) (moved bool, err error) {
	start := time.Now()
	defer func() { observe("mark_failed", "session_assets", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE session_assets
		SET assets_status = ?, video_key = NULL, timeline_key = NULL, last_error = ?, updated_at = ?
		WHERE session_id = ? AND assets_status = ?`,
		string(models.AssetFailed), nullString(truncate(reason, maxErrorLen)), toMillis(now),
		sessionID, string(models.AssetProcessing))
	if err != nil {
		return false, fmt.Errorf("mark %s failed: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark %s failed: rows affected: %w", sessionID, err)
	}
	return n > 0, nil
}

// FailStale moves processing sessions last updated before cutoff to failed
// and returns their ids. A worker that crashed mid-job leaves such rows.
func (db *DB) FailStale(ctx context.Context, cutoff time.Time, reason string, now time.Time) (ids []string, err error) {
	start := time.Now()
	defer func() { observe("fail_stale", "session_assets", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		UPDATE session_assets
		SET assets_status = ?, video_key = NULL, timeline_key = NULL, last_error = ?, updated_at = ?
		WHERE assets_status = ? AND updated_at < ?
		RETURNING session_id`,
		string(models.AssetFailed), nullString(truncate(reason, maxErrorLen)), toMillis(now),
		string(models.AssetProcessing), toMillis(cutoff))
	if err != nil {
		return nil, fmt.Errorf("fail stale assets: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale asset: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale assets: %w", err)
	}
	return ids, nil
}

// CountAssetsByStatus returns per-state counts.
func (db *DB) CountAssetsByStatus(ctx context.Context) (stats models.QueueStats, err error) {
	start := time.Now()
	defer func() { observe("stats", "session_assets", start, err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT assets_status, COUNT(*) FROM session_assets GROUP BY assets_status`)
	if err != nil {
		return stats, fmt.Errorf("count assets: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("scan asset count: %w", err)
		}
		stats.Add(models.AssetStatus(status), n)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate asset counts: %w", err)
	}
	return stats, nil
}

// ListAssets returns up to limit asset rows in the given state, oldest
// update first.
func (db *DB) ListAssets(ctx context.Context, status models.AssetStatus, limit int) (assets []models.SessionAsset, err error) {
	start := time.Now()
	defer func() { observe("list", "session_assets", start, err) }()

	rows, err := db.conn.QueryContext(ctx,
		selectAsset+` WHERE assets_status = ? ORDER BY updated_at, session_id LIMIT ?`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s assets: %w", status, err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s assets: %w", status, err)
	}
	return assets, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
