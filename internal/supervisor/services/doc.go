// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package services provides suture.Service wrappers for server components.

HTTPServerService translates http.Server's blocking ListenAndServe into
suture's context-aware Serve with graceful shutdown.

JanitorService runs one periodic housekeeping task. The server registers
one janitor per task:

  - cache-expiry: drop expired playback cache entries
  - stale-recovery: fail asset jobs whose worker stopped heartbeating
  - blob-gc: reclaim badger value log space (badger backend only)

A failing task is logged and retried on the next tick; it never makes the
janitor return, so one broken dependency does not put the data layer into
supervisor backoff.

The asset worker (package worker) implements suture.Service itself and is
added to the tree directly.
*/
package services
