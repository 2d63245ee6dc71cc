// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/resilience"
)

// ChunkLister lists the indexed chunks of a session.
type ChunkLister interface {
	ListChunks(ctx context.Context, sessionID string) ([]models.Chunk, error)
}

// BlobReader reads chunk blobs.
type BlobReader interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config controls merge fan-out.
type Config struct {
	FetchTimeout   time.Duration
	MaxParallel    int
	CircuitBreaker config.CircuitBreakerConfig
}

// Merger builds merged sessions from the chunk index and blob store.
type Merger struct {
	index   ChunkLister
	blobs   BlobReader
	cfg     Config
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewMerger creates a Merger.
func NewMerger(index ChunkLister, blobs BlobReader, cfg Config) *Merger {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	breaker := resilience.NewCircuitBreaker[[]byte](resilience.BlobFetch, cfg.CircuitBreaker, func(err error) bool {
		return err == nil || errors.Is(err, blobstore.ErrNotFound)
	})
	return &Merger{index: index, blobs: blobs, cfg: cfg, breaker: breaker}
}

// Merge returns every retrievable event of the session ordered by event
// timestamp. It returns models.ErrSessionNotFound when no chunk is indexed.
// Chunks that fail to load are skipped and counted in SkippedChunks.
func (m *Merger) Merge(ctx context.Context, sessionID string) (*models.MergedSession, error) {
	start := time.Now()

	chunks, err := m.index.ListChunks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks: %w", models.ErrStorage, err)
	}
	if len(chunks) == 0 {
		return nil, models.ErrSessionNotFound
	}

	perChunk := make([][]models.Event, len(chunks))
	var skipped atomic.Int32

	var g errgroup.Group
	if m.cfg.MaxParallel > 0 {
		g.SetLimit(m.cfg.MaxParallel)
	}
	for i := range chunks {
		chunk := chunks[i]
		g.Go(func() error {
			events, reason, err := m.loadChunk(ctx, chunk.BlobKey)
			if err != nil {
				skipped.Add(1)
				metrics.MergeChunkFailures.WithLabelValues(reason).Inc()
				logging.Ctx(ctx).Warn().Err(err).
					Str("session_id", sessionID).
					Str("blob_key", chunk.BlobKey).
					Int("sequence", chunk.Sequence).
					Str("reason", reason).
					Msg("Skipping chunk during merge")
				return nil
			}
			perChunk[i] = events
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := &models.MergedSession{
		SessionID:     sessionID,
		CampaignID:    chunks[0].CampaignID,
		Bucket:        m.blobs.Name(),
		PageURLs:      distinctPageURLs(chunks),
		Events:        concatBySequence(chunks, perChunk),
		ChunkCount:    len(chunks),
		SkippedChunks: int(skipped.Load()),
	}

	metrics.RecordMerge(time.Since(start), len(chunks)-merged.SkippedChunks)
	logging.Ctx(ctx).Debug().
		Str("session_id", sessionID).
		Int("chunks", merged.ChunkCount).
		Int("skipped", merged.SkippedChunks).
		Int("events", len(merged.Events)).
		Dur("duration", time.Since(start)).
		Msg("Merged session")

	return merged, nil
}

// loadChunk fetches and decodes one blob. reason labels the failure.
func (m *Merger) loadChunk(ctx context.Context, key string) ([]models.Event, string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	data, err := resilience.Execute(m.breaker, func() ([]byte, error) {
		return m.blobs.Get(fetchCtx, key)
	})
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrOpen):
		return nil, "circuit_open", err
	case errors.Is(err, blobstore.ErrNotFound):
		return nil, "not_found", err
	case errors.Is(err, context.DeadlineExceeded):
		return nil, "timeout", err
	default:
		return nil, "fetch", err
	}

	events, err := DecodePayload(data)
	if err != nil {
		return nil, "decode", err
	}
	return events, "", nil
}

// concatBySequence joins chunk payloads in sequence order and stably sorts
// the result by event timestamp.
func concatBySequence(chunks []models.Chunk, perChunk [][]models.Event) []models.Event {
	order := make([]int, len(chunks))
	total := 0
	for i := range order {
		order[i] = i
		total += len(perChunk[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return chunks[order[a]].Sequence < chunks[order[b]].Sequence
	})

	events := make([]models.Event, 0, total)
	for _, i := range order {
		events = append(events, perChunk[i]...)
	}
	sort.SliceStable(events, func(a, b int) bool {
		return events[a].Timestamp < events[b].Timestamp
	})
	return events
}

func distinctPageURLs(chunks []models.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	urls := make([]string, 0, 1)
	for i := range chunks {
		u := chunks[i].PageURL
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
