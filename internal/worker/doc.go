// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package worker generates derived assets for queued sessions.

Worker is a suture.Service. On start it fails sessions left in processing
by a previous crash, then loops:

 1. Claim the oldest queued session.
 2. Merge its chunks directly from storage (the playback cache is not used).
 3. Generate the timeline and upload it.
 4. Render the video with the configured Renderer and upload it.
 5. Mark the session ready with both keys.

Each job is bounded by Config.JobTimeout. Any error, including the timeout,
marks the session failed with the reason; the failure is recorded on a
fresh context so it lands even after the job deadline. While jobs remain
the worker claims the next one immediately. When the queue is empty it
waits for the poll interval or a queue notification, whichever comes first.

One Worker processes one job at a time. Several workers, in one process or
many, can share a database because claiming is atomic.
*/
package worker
