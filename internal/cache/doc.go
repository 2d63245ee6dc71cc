// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package cache provides the playback cache for merged sessions.

# Overview

Merging a session fetches every chunk blob, which is too slow to repeat for
each playback request. PlaybackCache keeps recently merged sessions in a
bounded in-memory LRU with a TTL:

  - Thread-safe; one mutex guards all bookkeeping
  - O(1) Get, Add and Remove, with LRU eviction at capacity
  - Lazy expiration on Get plus periodic CleanupExpired
  - Concurrent misses for the same session share one merge (singleflight)

Cached values are shared, never cloned. Callers must treat a returned
*models.MergedSession as read-only.

# Invalidation

Operator deletes call Invalidate. A merge that was already running when
the session was invalidated still answers its callers but is not stored.
Merges that skipped chunks are served uncached so the next read retries
the missing blobs. Chunks that arrive after a session was cached are
picked up once the entry expires. The asset worker never reads through
the cache.

A shared merge runs detached from the request that started it, bounded by
Options.MergeTimeout. A caller whose context ends stops waiting without
failing the others.

# Usage Example

	pc := cache.NewPlaybackCache(merger, cache.Options{Capacity: 100, TTL: 10 * time.Minute})
	session, err := pc.Get(ctx, sessionID)
*/
package cache
