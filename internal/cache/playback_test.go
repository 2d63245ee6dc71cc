// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/replayline/internal/models"
)

type countingMerger struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
	skipped int
}

func (m *countingMerger) Merge(ctx context.Context, sessionID string) (*models.MergedSession, error) {
	m.calls.Add(1)
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &models.MergedSession{SessionID: sessionID, SkippedChunks: m.skipped}, nil
}

func waitForCalls(t *testing.T, m *countingMerger, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("merge calls = %d, want %d", m.calls.Load(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPlaybackCache_ReadThrough(t *testing.T) {
	merger := &countingMerger{}
	pc := NewPlaybackCache(merger, Options{Capacity: 10, TTL: time.Minute})
	ctx := context.Background()

	first, err := pc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, _ := pc.Get(ctx, "s1")

	if first != second {
		t.Error("cached value should be shared, not cloned")
	}
	if got := merger.calls.Load(); got != 1 {
		t.Errorf("merge calls = %d, want 1", got)
	}

	if !pc.Invalidate("s1") {
		t.Error("Invalidate(s1) = false, want true")
	}
	if _, err := pc.Get(ctx, "s1"); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if got := merger.calls.Load(); got != 2 {
		t.Errorf("merge calls after invalidate = %d, want 2", got)
	}
}

func TestPlaybackCache_CoalescesMisses(t *testing.T) {
	merger := &countingMerger{release: make(chan struct{})}
	pc := NewPlaybackCache(merger, Options{Capacity: 10, TTL: time.Minute})

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*models.MergedSession, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = pc.Get(context.Background(), "s1")
		}(i)
	}

	// Let the goroutines pile up behind the first merge.
	time.Sleep(50 * time.Millisecond)
	close(merger.release)
	wg.Wait()

	if got := merger.calls.Load(); got != 1 {
		t.Errorf("merge calls = %d, want 1", got)
	}
	for i, r := range results {
		if r == nil || r.SessionID != "s1" {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestPlaybackCache_ErrorsNotCached(t *testing.T) {
	merger := &countingMerger{err: models.ErrSessionNotFound}
	pc := NewPlaybackCache(merger, Options{})

	for i := 0; i < 2; i++ {
		if _, err := pc.Get(context.Background(), "nope"); !errors.Is(err, models.ErrSessionNotFound) {
			t.Errorf("Get #%d error = %v, want ErrSessionNotFound", i, err)
		}
	}
	if got := merger.calls.Load(); got != 2 {
		t.Errorf("merge calls = %d, want 2", got)
	}
	if pc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", pc.Len())
	}
}

func TestPlaybackCache_InvalidateDuringMerge(t *testing.T) {
	merger := &countingMerger{release: make(chan struct{})}
	pc := NewPlaybackCache(merger, Options{Capacity: 10, TTL: time.Minute})

	type result struct {
		session *models.MergedSession
		err     error
	}
	done := make(chan result, 1)
	go func() {
		session, err := pc.Get(context.Background(), "s1")
		done <- result{session, err}
	}()

	waitForCalls(t, merger, 1)
	pc.Invalidate("s1")
	close(merger.release)

	res := <-done
	if res.err != nil || res.session == nil {
		t.Fatalf("Get = %v, %v; want the merged session", res.session, res.err)
	}
	if pc.Len() != 0 {
		t.Errorf("Len() after invalidate during merge = %d, want 0", pc.Len())
	}

	if _, err := pc.Get(context.Background(), "s1"); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if got := merger.calls.Load(); got != 2 {
		t.Errorf("merge calls = %d, want 2", got)
	}
	if pc.Len() != 1 {
		t.Errorf("Len() after fresh merge = %d, want 1", pc.Len())
	}
}

func TestPlaybackCache_PartialMergeNotCached(t *testing.T) {
	merger := &countingMerger{skipped: 3}
	pc := NewPlaybackCache(merger, Options{Capacity: 10, TTL: time.Minute})

	for i := 0; i < 2; i++ {
		session, err := pc.Get(context.Background(), "s1")
		if err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
		if session.SkippedChunks != 3 {
			t.Errorf("SkippedChunks = %d, want 3", session.SkippedChunks)
		}
	}
	if got := merger.calls.Load(); got != 2 {
		t.Errorf("merge calls = %d, want 2", got)
	}
	if pc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", pc.Len())
	}
}

func TestPlaybackCache_CallerCancelDoesNotFailOthers(t *testing.T) {
	merger := &countingMerger{release: make(chan struct{})}
	pc := NewPlaybackCache(merger, Options{Capacity: 10, TTL: time.Minute})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := pc.Get(firstCtx, "s1")
		firstErr <- err
	}()
	waitForCalls(t, merger, 1)

	type result struct {
		session *models.MergedSession
		err     error
	}
	second := make(chan result, 1)
	go func() {
		session, err := pc.Get(context.Background(), "s1")
		second <- result{session, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled caller error = %v, want context.Canceled", err)
	}

	close(merger.release)
	res := <-second
	if res.err != nil || res.session == nil || res.session.SessionID != "s1" {
		t.Fatalf("joined caller Get = %+v, %v", res.session, res.err)
	}
	if got := merger.calls.Load(); got != 1 {
		t.Errorf("merge calls = %d, want 1", got)
	}
	if pc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", pc.Len())
	}
}

func TestPlaybackCache_MergeTimeout(t *testing.T) {
	merger := &countingMerger{release: make(chan struct{})}
	defer close(merger.release)
	pc := NewPlaybackCache(merger, Options{Capacity: 10, TTL: time.Minute, MergeTimeout: 20 * time.Millisecond})

	if _, err := pc.Get(context.Background(), "s1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get error = %v, want context.DeadlineExceeded", err)
	}
}

func TestPlaybackCache_CleanupDropsOldInvalidations(t *testing.T) {
	pc := NewPlaybackCache(&countingMerger{}, Options{Capacity: 10, TTL: time.Minute, MergeTimeout: time.Millisecond})

	pc.Invalidate("s1")
	time.Sleep(5 * time.Millisecond)
	pc.CleanupExpired()

	pc.mu.Lock()
	n := len(pc.invalidated)
	pc.mu.Unlock()
	if n != 0 {
		t.Errorf("invalidation stamps after cleanup = %d, want 0", n)
	}
}
