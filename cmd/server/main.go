// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package main is the entry point for the Replayline server.
//
// Replayline ingests rrweb session recordings in chunks from capture
// scripts, serves merged sessions for playback, and generates a narrative
// timeline and a rendered video per session in the background.
//
// # Startup
//
//  1. Configuration: defaults, optional YAML file, environment (koanf)
//  2. Logging: zerolog, JSON or console
//  3. Index database: DuckDB or SQLite
//  4. Blob store: embedded badger (with locally signed URLs) or GCS
//  5. Services: ingestion, merge, playback cache, asset queue
//  6. Worker: merge, timeline, render, upload (when WORKER_ENABLED)
//  7. Supervisor tree: janitors, worker, HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests, the worker finishes or fails its current job, and the
// database and blob store are closed.
//
// # Example
//
//	export ADMIN_TOKEN=$(openssl rand -hex 24)
//	export BLOB_TOKEN_SECRET=$(openssl rand -hex 32)
//	export WORKER_ENABLED=true RENDER_COMMAND=/usr/local/bin/rrvideo
//	./replayline
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("database_driver", cfg.Database.Driver).
		Str("blob_backend", cfg.Blob.Backend).
		Bool("worker_enabled", cfg.Worker.Enabled).
		Int("campaigns", len(cfg.Security.Campaigns)).
		Msg("Starting Replayline")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize")
		os.Exit(1)
	}
	defer app.close()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree")
	if err := app.tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := app.tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Replayline stopped")
}
