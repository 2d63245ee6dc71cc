// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
)

// Supported drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

const memoryPath = ":memory:"

// DB wraps the chunk index / asset table connection.
type DB struct {
	conn   *sql.DB
	driver string
	path   string
}

// Open connects to the configured database and creates the schema.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path != memoryPath {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	var (
		conn *sql.DB
		err  error
	)
	switch cfg.Driver {
	case DriverDuckDB:
		// Extensions are not needed; never try to download them.
		connStr := cfg.Path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"
		conn, err = sql.Open("duckdb", connStr)
	case DriverSQLite:
		dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
		if cfg.Path != memoryPath {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		conn, err = sql.Open("sqlite", dsn)
		if err == nil {
			// Single writer to avoid SQLITE_BUSY; also keeps :memory: alive.
			conn.SetMaxOpenConns(1)
			conn.SetMaxIdleConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, driver: cfg.Driver, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.createSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("driver", cfg.Driver).Str("path", cfg.Path).Msg("Database opened")
	return db, nil
}

// Driver returns the configured driver name.
func (db *DB) Driver() string { return db.driver }

// Close flushes and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if db.driver == DriverDuckDB && db.path != memoryPath {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
		cancel()
	}
	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// observe records query latency and failures.
func observe(operation, table string, start time.Time, err error) {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
