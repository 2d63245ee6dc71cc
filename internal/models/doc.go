// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package models defines the data structures shared across Replayline.

Key Components:

  - Chunk: one uploaded slice of a session's event stream (index row)
  - SessionAsset: per-session derived asset state (timeline + video)
  - Event: the rrweb event envelope; Data is decoded lazily
  - MergedSession: a session's chunks assembled into one ordered event log
  - Request types: ingestion requests carrying validator tags

Errors:

Sentinel errors in errors.go are matched with errors.Is. ConflictError
reports a rejected asset state transition together with the current state.
*/
package models
