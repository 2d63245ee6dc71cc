// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package queue implements the per-session asset generation state machine.

# States

	(none) --dropped_off--> queued
	(none) --completed----> raw
	(none) --enqueue------> queued      (requires at least one chunk)
	raw    --dropped_off--> queued
	raw    --enqueue------> queued
	failed --enqueue------> queued
	queued --claim--------> processing
	processing --ready----> ready       (video and timeline keys set)
	processing --fail-----> failed
	processing --stale----> failed      (claim older than queue.stale_after)

Enqueue from queued, processing or ready is rejected with a
*models.ConflictError carrying the current state. Completed sessions stay
raw until an operator enqueues them.

# Claiming

GetNextJob claims the oldest queued session with one conditional UPDATE, so
several workers may poll the same database. Losing a race looks the same
as an empty queue.

# Notifications

Every transition into queued publishes the session id on TopicQueued of an
in-process watermill GoChannel. Workers use the message only as a hint to
poll early; the database is the source of truth and a lost message costs at
most one poll interval.
*/
package queue
