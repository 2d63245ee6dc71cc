// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package database

import (
	"context"
	"fmt"
)

const chunkColumns = `
	session_id TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	blob_key TEXT NOT NULL UNIQUE,
	captured_at BIGINT NOT NULL,
	campaign_id TEXT NOT NULL,
	device_id TEXT NOT NULL DEFAULT '',
	page_url TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL,
	UNIQUE (session_id, sequence)`

const assetsTable = `
CREATE TABLE IF NOT EXISTS session_assets (
	session_id TEXT PRIMARY KEY,
	assets_status TEXT NOT NULL,
	completion_status TEXT,
	video_key TEXT,
	timeline_key TEXT,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
)`

func schemaStatements(driver string) []string {
	if driver == DriverSQLite {
		return []string{
			`CREATE TABLE IF NOT EXISTS session_chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,` + chunkColumns + `
)`,
			assetsTable,
			`CREATE INDEX IF NOT EXISTS idx_session_assets_status ON session_assets (assets_status, updated_at)`,
		}
	}
	// DuckDB: no secondary index on session_assets. ART indexes make
	// frequent UPDATEs on the indexed table slower and the table is small.
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS session_chunks_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS session_chunks (
	id BIGINT PRIMARY KEY DEFAULT nextval('session_chunks_id_seq'),` + chunkColumns + `
)`,
		assetsTable,
	}
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(db.driver) {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
