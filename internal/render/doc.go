// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package render produces session videos through an external command.
//
// The renderer is a collaborator: any program that reads a JSON event file
// and writes a video file can be configured. Calls run through a circuit
// breaker so a broken renderer fails jobs quickly instead of holding the
// worker for the full job timeout each time.
package render
