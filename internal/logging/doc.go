// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package logging provides centralized zerolog-based structured logging for Replayline.
//
// Every component logs through the package-level helpers so that the API server,
// the asset worker and the supervisor tree share one configured output.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("session_id", id).Msg("Chunk confirmed")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Chunk fetch skipped")
//
// # Context Propagation
//
// HTTP middleware stores a request ID and a short correlation ID in the request
// context. Ctx(ctx) returns a logger with both fields attached.
//
// # slog Interop
//
// Suture (through sutureslog) and watermill expect a *slog.Logger. NewSlogLogger
// returns one whose records are written by the global zerolog logger.
//
// # Configuration
//
// Environment variables (via internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
package logging
