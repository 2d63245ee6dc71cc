// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package metrics registers Replayline's Prometheus collectors.
//
// Collectors are package-level variables registered with promauto on the
// default registry and exposed at /metrics. The Record* helpers keep label
// values consistent across call sites.
//
// Groups:
//   - replayline_api_*: HTTP request count, latency and in-flight requests
//   - replayline_db_*: chunk index and asset table query latency and errors
//   - replayline_ingest_*: tickets, confirmations, duplicates, beacon writes
//   - replayline_merge_*: merge latency, chunk fetch failures
//   - replayline_playback_cache_*: hits, misses, entries
//   - replayline_queue_*: state transitions, sessions per state
//   - replayline_worker_*: job latency and outcomes
//   - replayline_circuit_breaker_*: breaker state and transitions
package metrics
