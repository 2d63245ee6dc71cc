// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
	"github.com/tomtom215/replayline/internal/models"
)

const defaultMergeTimeout = 30 * time.Second

// Merger produces a merged session.
type Merger interface {
	Merge(ctx context.Context, sessionID string) (*models.MergedSession, error)
}

// Options bounds the playback cache.
type Options struct {
	Capacity int
	TTL      time.Duration
	// MergeTimeout bounds a shared merge, which outlives the request that
	// started it. Default: 30s
	MergeTimeout time.Duration
}

// PlaybackCache is a read-through cache of merged sessions.
type PlaybackCache struct {
	merger       Merger
	lru          *LRU[*models.MergedSession]
	group        singleflight.Group
	mergeTimeout time.Duration

	// mu orders invalidations against fills. invalidated holds the last
	// Invalidate time per session; a merge started at or before it is
	// not cached.
	mu          sync.Mutex
	invalidated map[string]time.Time
}

// NewPlaybackCache creates a cache that fills misses from merger.
func NewPlaybackCache(merger Merger, opts Options) *PlaybackCache {
	if opts.MergeTimeout <= 0 {
		opts.MergeTimeout = defaultMergeTimeout
	}
	return &PlaybackCache{
		merger:       merger,
		lru:          NewLRU[*models.MergedSession](opts.Capacity, opts.TTL),
		mergeTimeout: opts.MergeTimeout,
		invalidated:  make(map[string]time.Time),
	}
}

// Get returns the merged session, merging on a miss. Concurrent misses for
// the same session wait on a single merge, which keeps running if the
// caller that started it goes away. Errors and merges that skipped chunks
// are not cached.
func (c *PlaybackCache) Get(ctx context.Context, sessionID string) (*models.MergedSession, error) {
	if session, ok := c.lru.Get(sessionID); ok {
		metrics.PlaybackCacheHits.Inc()
		return session, nil
	}
	metrics.PlaybackCacheMisses.Inc()

	ch := c.group.DoChan(sessionID, func() (interface{}, error) {
		return c.fill(context.WithoutCancel(ctx), sessionID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logging.Ctx(ctx).Debug().Str("session_id", sessionID).Msg("Joined in-flight merge")
		}
		return res.Val.(*models.MergedSession), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *PlaybackCache) fill(ctx context.Context, sessionID string) (*models.MergedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, c.mergeTimeout)
	defer cancel()

	started := time.Now()
	session, err := c.merger.Merge(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.SkippedChunks > 0 {
		logging.Ctx(ctx).Warn().
			Str("session_id", sessionID).
			Int("skipped", session.SkippedChunks).
			Msg("Serving partial merge without caching it")
		return session, nil
	}

	c.mu.Lock()
	if at, ok := c.invalidated[sessionID]; ok && !at.Before(started) {
		c.mu.Unlock()
		logging.Ctx(ctx).Debug().Str("session_id", sessionID).Msg("Session invalidated during merge, not caching")
		return session, nil
	}
	evicted := c.lru.Add(sessionID, session)
	c.mu.Unlock()

	if evicted > 0 {
		logging.Ctx(ctx).Debug().Int("evicted", evicted).Msg("Playback cache evicted sessions")
	}
	metrics.PlaybackCacheEntries.Set(float64(c.lru.Len()))
	return session, nil
}

// Invalidate drops a session from the cache. A merge already running for
// the session still answers its callers but is not cached.
func (c *PlaybackCache) Invalidate(sessionID string) bool {
	c.mu.Lock()
	c.invalidated[sessionID] = time.Now()
	c.group.Forget(sessionID)
	removed := c.lru.Remove(sessionID)
	c.mu.Unlock()

	metrics.PlaybackCacheEntries.Set(float64(c.lru.Len()))
	return removed
}

// CleanupExpired removes expired entries and returns how many were removed.
// Invalidation stamps older than the merge timeout are dropped too, since
// no running merge can predate them.
func (c *PlaybackCache) CleanupExpired() int {
	removed := c.lru.CleanupExpired()

	cutoff := time.Now().Add(-c.mergeTimeout)
	c.mu.Lock()
	for id, at := range c.invalidated {
		if at.Before(cutoff) {
			delete(c.invalidated, id)
		}
	}
	c.mu.Unlock()

	metrics.PlaybackCacheEntries.Set(float64(c.lru.Len()))
	return removed
}

// Len returns the number of cached sessions.
func (c *PlaybackCache) Len() int {
	return c.lru.Len()
}
