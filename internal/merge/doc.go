// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package merge assembles the chunks of one session into a single ordered
event log.

Chunks arrive out of order and are stored independently, so the index
listing order (capture time, then sequence) is only diagnostic. The merged
log is built by concatenating chunk payloads in sequence order and then
stably sorting by each event's own timestamp. Events that share a timestamp
keep their chunk order.

Blob fetches run in parallel, each with its own timeout and through a
circuit breaker. A chunk that cannot be fetched or decoded is logged,
counted and skipped: merges are best effort and a session with some bad
chunks still replays.
*/
package merge
