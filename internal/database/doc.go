// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package database stores the chunk index and the session asset table.
//
// Two drivers are supported through database/sql:
//
//   - duckdb (default): github.com/duckdb/duckdb-go/v2
//   - sqlite: modernc.org/sqlite, pure Go, one writer connection
//
// Tables:
//
//	session_chunks  one row per uploaded chunk, UNIQUE(session_id, sequence)
//	session_assets  one row per session with derived asset state
//
// Times are stored as unix milliseconds. Every state change to
// session_assets is a single conditional statement, so several API servers
// and workers can share one database without a lock manager.
package database
