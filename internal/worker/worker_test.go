// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/database"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/queue"
	"github.com/tomtom215/replayline/internal/render"
)

type stubMerger struct {
	err error
}

func (m *stubMerger) Merge(_ context.Context, sessionID string) (*models.MergedSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.MergedSession{
		SessionID:  sessionID,
		ChunkCount: 1,
		Events: []models.Event{
			{Type: 4, Data: json.RawMessage(`{"href":"https://shop.example.com/","width":800,"height":600}`), Timestamp: 1000},
		},
	}, nil
}

type stubRenderer struct {
	err   error
	block bool
}

func (r *stubRenderer) Render(ctx context.Context, req render.Request) (*render.Output, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &render.Output{Data: []byte("video:" + req.SessionID), ContentType: "video/mp4", Extension: "mp4"}, nil
}

type fixture struct {
	db    *database.DB
	queue *queue.Queue
	store *blobstore.BadgerStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	signer, err := blobstore.NewTokenSigner(strings.Repeat("s", 32))
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	store, err := blobstore.OpenBadger(blobstore.BadgerOptions{InMemory: true, PublicURL: "http://replay.test"}, signer)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{db: db, queue: queue.New(db, nil), store: store}
}

func (f *fixture) enqueue(t *testing.T, sessionID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.db.InsertChunk(ctx, &models.Chunk{
		SessionID:  sessionID,
		BlobKey:    "chunks/c/" + sessionID + "/000000.json.gz",
		CapturedAt: time.Now(),
		CampaignID: "c",
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertChunk: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, sessionID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func (f *fixture) status(t *testing.T, sessionID string) *models.SessionAsset {
	t.Helper()
	asset, err := f.queue.Status(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return asset
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	f := setup(t)
	w := New(f.queue, &stubMerger{}, f.store, &stubRenderer{}, nil, Config{})

	processed, err := w.ProcessNext(context.Background())
	if processed || err != nil {
		t.Errorf("ProcessNext = %v, %v; want false, nil", processed, err)
	}
}

func TestProcessNext_Success(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.enqueue(t, "s1")
	w := New(f.queue, &stubMerger{}, f.store, &stubRenderer{}, nil, Config{})

	processed, err := w.ProcessNext(ctx)
	if !processed || err != nil {
		t.Fatalf("ProcessNext = %v, %v; want true, nil", processed, err)
	}

	asset := f.status(t, "s1")
	if asset.Status != models.AssetReady {
		t.Fatalf("status = %s, want ready", asset.Status)
	}
	if asset.TimelineKey != blobstore.TimelineKey("s1") || asset.VideoKey != blobstore.VideoKey("s1", "mp4") {
		t.Errorf("keys = %q, %q", asset.TimelineKey, asset.VideoKey)
	}

	text, err := f.store.Get(ctx, asset.TimelineKey)
	if err != nil {
		t.Fatalf("Get timeline: %v", err)
	}
	if !strings.Contains(string(text), "Navigated to: https://shop.example.com/") {
		t.Errorf("timeline = %q", text)
	}
	video, _ := f.store.Get(ctx, asset.VideoKey)
	if string(video) != "video:s1" {
		t.Errorf("video = %q", video)
	}
}

func TestProcessNext_Failures(t *testing.T) {
	tests := []struct {
		name     string
		merger   *stubMerger
		renderer *stubRenderer
		timeout  time.Duration
		want     string
	}{
		{"merge error", &stubMerger{err: models.ErrSessionNotFound}, &stubRenderer{}, 0, "session not found"},
		{"render error", &stubMerger{}, &stubRenderer{err: errors.New("ffmpeg exited 1")}, 0, "ffmpeg exited 1"},
		{"job timeout", &stubMerger{}, &stubRenderer{block: true}, 50 * time.Millisecond, "job exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.enqueue(t, "s1")
			w := New(f.queue, tt.merger, f.store, tt.renderer, nil, Config{JobTimeout: tt.timeout})

			processed, err := w.ProcessNext(context.Background())
			if !processed || !errors.Is(err, models.ErrProcessing) {
				t.Fatalf("ProcessNext = %v, %v; want true, ErrProcessing", processed, err)
			}

			asset := f.status(t, "s1")
			if asset.Status != models.AssetFailed {
				t.Errorf("status = %s, want failed", asset.Status)
			}
			if !strings.Contains(asset.LastError, tt.want) {
				t.Errorf("LastError = %q, want containing %q", asset.LastError, tt.want)
			}

			// failed sessions can be queued again
			if _, err := f.queue.Enqueue(context.Background(), "s1"); err != nil {
				t.Errorf("re-Enqueue: %v", err)
			}
		})
	}
}

func TestServe_NotificationWakesWorker(t *testing.T) {
	f := setup(t)
	pubsub := queue.NewPubSub(8)
	t.Cleanup(func() { _ = pubsub.Close() })
	q := queue.New(f.db, pubsub)
	f.queue = q

	w := New(q, &stubMerger{}, f.store, &stubRenderer{}, pubsub, Config{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	// give Serve time to subscribe before the first publish
	time.Sleep(50 * time.Millisecond)
	f.enqueue(t, "s1")

	deadline := time.Now().Add(5 * time.Second)
	for f.status(t, "s1").Status != models.AssetReady {
		if time.Now().After(deadline) {
			t.Fatalf("session not processed; status = %s", f.status(t, "s1").Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestServe_RecoversStaleAtStart(t *testing.T) {
	f := setup(t)
	f.enqueue(t, "s1")
	if job, err := f.queue.GetNextJob(context.Background()); err != nil || job == nil {
		t.Fatalf("GetNextJob = %v, %v", job, err)
	}
	time.Sleep(20 * time.Millisecond)

	w := New(f.queue, &stubMerger{}, f.store, &stubRenderer{}, nil, Config{PollInterval: time.Hour, StaleAfter: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for f.status(t, "s1").Status != models.AssetFailed {
		if time.Now().After(deadline) {
			t.Fatalf("stale session not recovered; status = %s", f.status(t, "s1").Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if w.String() != "asset-worker" {
		t.Errorf("String() = %q", w.String())
	}
}
