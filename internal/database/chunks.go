// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/replayline/internal/models"
)

// InsertChunk records a chunk. It returns false, without error, when the
// session already has a chunk with the same sequence number.
func (db *DB) InsertChunk(ctx context.Context, c *models.Chunk) (created bool, err error) {
	start := time.Now()
	defer func() { observe("insert", "session_chunks", start, err) }()

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_chunks
			(session_id, sequence, blob_key, captured_at, campaign_id, device_id, page_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, sequence) DO NOTHING`,
		c.SessionID, c.Sequence, c.BlobKey, toMillis(c.CapturedAt),
		c.CampaignID, c.DeviceID, c.PageURL, toMillis(c.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert chunk %s/%d: %w", c.SessionID, c.Sequence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert chunk %s/%d: rows affected: %w", c.SessionID, c.Sequence, err)
	}
	return n > 0, nil
}

// ListChunks returns a session's chunks ordered by capture time, then
// sequence. Capture time comes from client clocks, so this order is for
// diagnostics only; merged event order is decided by event timestamps.
func (db *DB) ListChunks(ctx context.Context, sessionID string) (chunks []models.Chunk, err error) {
	start := time.Now()
	defer func() { observe("list", "session_chunks", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session_id, sequence, blob_key, captured_at, campaign_id, device_id, page_url, created_at
		FROM session_chunks
		WHERE session_id = ?
		ORDER BY captured_at, sequence`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", sessionID, err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var (
			c                     models.Chunk
			capturedAt, createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Sequence, &c.BlobKey, &capturedAt,
			&c.CampaignID, &c.DeviceID, &c.PageURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.CapturedAt = fromMillis(capturedAt)
		c.CreatedAt = fromMillis(createdAt)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks for %s: %w", sessionID, err)
	}
	return chunks, nil
}

// CountChunks returns the number of indexed chunks for a session.
func (db *DB) CountChunks(ctx context.Context, sessionID string) (n int, err error) {
	start := time.Now()
	defer func() { observe("count", "session_chunks", start, err) }()

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_chunks WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks for %s: %w", sessionID, err)
	}
	return n, nil
}

// DeletedSession lists what a session delete removed, so the caller can
// remove the matching blobs.
type DeletedSession struct {
	ChunkKeys []string
	Asset     *models.SessionAsset
}

// BlobKeys returns every blob key owned by the deleted session.
func (d *DeletedSession) BlobKeys() []string {
	keys := append([]string(nil), d.ChunkKeys...)
	if d.Asset != nil {
		if d.Asset.TimelineKey != "" {
			keys = append(keys, d.Asset.TimelineKey)
		}
		if d.Asset.VideoKey != "" {
			keys = append(keys, d.Asset.VideoKey)
		}
	}
	return keys
}

// DeleteSession removes a session's chunk rows and asset row in one
// transaction. It returns models.ErrSessionNotFound when neither exists.
func (db *DB) DeleteSession(ctx context.Context, sessionID string) (deleted *DeletedSession, err error) {
	start := time.Now()
	defer func() { observe("delete", "session_chunks", start, err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete %s: %w", sessionID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	deleted = &DeletedSession{}
	rows, err := tx.QueryContext(ctx, `SELECT blob_key FROM session_chunks WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select chunk keys for %s: %w", sessionID, err)
	}
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("scan chunk key: %w", err)
		}
		deleted.ChunkKeys = append(deleted.ChunkKeys, key)
	}
	if err = rows.Err(); err != nil {
		closeQuietly(rows)
		return nil, fmt.Errorf("iterate chunk keys for %s: %w", sessionID, err)
	}
	closeQuietly(rows)

	asset, err := scanAsset(tx.QueryRowContext(ctx, selectAsset+` WHERE session_id = ?`, sessionID))
	switch {
	case err == nil:
		deleted.Asset = asset
	case isNoRows(err):
		err = nil
	default:
		return nil, fmt.Errorf("select asset for %s: %w", sessionID, err)
	}

	if len(deleted.ChunkKeys) == 0 && deleted.Asset == nil {
		err = models.ErrSessionNotFound
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM session_chunks WHERE session_id = ?`, sessionID); err != nil {
		return nil, fmt.Errorf("delete chunks for %s: %w", sessionID, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_assets WHERE session_id = ?`, sessionID); err != nil {
		return nil, fmt.Errorf("delete asset for %s: %w", sessionID, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete %s: %w", sessionID, err)
	}
	return deleted, nil
}
