// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/models"
)

var testDrivers = []string{DriverDuckDB, DriverSQLite}

// setupTestDB opens an in-memory database for the given driver.
func setupTestDB(t *testing.T, driver string) *DB {
	t.Helper()
	db, err := Open(&config.DatabaseConfig{Driver: driver, Path: memoryPath})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// forEachDriver runs fn once per supported driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, db *DB)) {
	t.Helper()
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			fn(t, setupTestDB(t, driver))
		})
	}
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testChunk(session string, seq int, captured time.Time) *models.Chunk {
	return &models.Chunk{
		SessionID:  session,
		Sequence:   seq,
		BlobKey:    fmt.Sprintf("chunks/camp/%s/%06d.json.gz", session, seq),
		CapturedAt: captured,
		CampaignID: "camp",
		PageURL:    "https://shop.example.com/",
		CreatedAt:  t0,
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(&config.DatabaseConfig{Driver: "postgres", Path: memoryPath}); err == nil {
		t.Error("Open(postgres) error = nil")
	}
}

func TestInsertChunk_Idempotent(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		c := testChunk("s1", 0, t0)

		created, err := db.InsertChunk(ctx, c)
		if err != nil || !created {
			t.Fatalf("first InsertChunk = %v, %v; want true, nil", created, err)
		}

		dup := testChunk("s1", 0, t0.Add(time.Second))
		dup.BlobKey = "chunks/camp/s1/other.json.gz"
		created, err = db.InsertChunk(ctx, dup)
		if err != nil {
			t.Fatalf("duplicate InsertChunk error = %v", err)
		}
		if created {
			t.Error("duplicate InsertChunk created = true")
		}

		n, err := db.CountChunks(ctx, "s1")
		if err != nil {
			t.Fatalf("CountChunks: %v", err)
		}
		if n != 1 {
			t.Errorf("CountChunks = %d, want 1", n)
		}

		chunks, err := db.ListChunks(ctx, "s1")
		if err != nil {
			t.Fatalf("ListChunks: %v", err)
		}
		if chunks[0].BlobKey != c.BlobKey {
			t.Errorf("BlobKey = %q, want first write %q", chunks[0].BlobKey, c.BlobKey)
		}
	})
}

func TestListChunks_OrderedByCaptureThenSequence(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		inserts := []*models.Chunk{
			testChunk("s1", 2, t0.Add(2*time.Second)),
			testChunk("s1", 0, t0.Add(3*time.Second)), // client clock skew
			testChunk("s1", 1, t0.Add(2*time.Second)),
			testChunk("other", 0, t0),
		}
		for _, c := range inserts {
			if _, err := db.InsertChunk(ctx, c); err != nil {
				t.Fatalf("InsertChunk: %v", err)
			}
		}

		chunks, err := db.ListChunks(ctx, "s1")
		if err != nil {
			t.Fatalf("ListChunks: %v", err)
		}
		want := []int{1, 2, 0}
		if len(chunks) != len(want) {
			t.Fatalf("len(chunks) = %d, want %d", len(chunks), len(want))
		}
		for i, seq := range want {
			if chunks[i].Sequence != seq {
				t.Errorf("chunks[%d].Sequence = %d, want %d", i, chunks[i].Sequence, seq)
			}
		}
		if !chunks[0].CapturedAt.Equal(t0.Add(2 * time.Second)) {
			t.Errorf("CapturedAt = %v", chunks[0].CapturedAt)
		}
	})
}

func TestAssetLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()

		if _, err := db.GetAsset(ctx, "s1"); !errors.Is(err, models.ErrAssetNotFound) {
			t.Fatalf("GetAsset(missing) error = %v, want ErrAssetNotFound", err)
		}

		created, err := db.CreateAsset(ctx, "s1", models.AssetQueued, t0)
		if err != nil || !created {
			t.Fatalf("CreateAsset = %v, %v", created, err)
		}
		if created, _ := db.CreateAsset(ctx, "s1", models.AssetRaw, t0); created {
			t.Error("second CreateAsset created = true")
		}

		claimed, err := db.ClaimNextQueued(ctx, t0.Add(time.Second))
		if err != nil || claimed == nil {
			t.Fatalf("ClaimNextQueued = %v, %v", claimed, err)
		}
		if claimed.Status != models.AssetProcessing || claimed.Attempts != 1 {
			t.Errorf("claimed = %+v", claimed)
		}

		if _, err := db.MarkReady(ctx, "s1", "", "t", t0); !errors.Is(err, models.ErrIntegrity) {
			t.Errorf("MarkReady with empty key error = %v, want ErrIntegrity", err)
		}
		moved, err := db.MarkReady(ctx, "s1", "assets/s1/replay.mp4", "assets/s1/timeline.txt", t0.Add(2*time.Second))
		if err != nil || !moved {
			t.Fatalf("MarkReady = %v, %v", moved, err)
		}

		a, err := db.GetAsset(ctx, "s1")
		if err != nil {
			t.Fatalf("GetAsset: %v", err)
		}
		if a.Status != models.AssetReady || a.VideoKey == "" || a.TimelineKey == "" {
			t.Errorf("asset = %+v", a)
		}

		// ready is terminal for MarkFailed
		if moved, _ := db.MarkFailed(ctx, "s1", "late failure", t0); moved {
			t.Error("MarkFailed on ready moved = true")
		}
	})
}

func TestClaimNextQueued_FIFOAndEmpty(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()

		if a, err := db.ClaimNextQueued(ctx, t0); err != nil || a != nil {
			t.Fatalf("ClaimNextQueued(empty) = %v, %v; want nil, nil", a, err)
		}

		_, _ = db.CreateAsset(ctx, "late", models.AssetQueued, t0.Add(time.Minute))
		_, _ = db.CreateAsset(ctx, "early", models.AssetQueued, t0)
		_, _ = db.CreateAsset(ctx, "raw", models.AssetRaw, t0.Add(-time.Hour))

		for _, want := range []string{"early", "late"} {
			a, err := db.ClaimNextQueued(ctx, t0.Add(time.Hour))
			if err != nil || a == nil {
				t.Fatalf("ClaimNextQueued = %v, %v", a, err)
			}
			if a.SessionID != want {
				t.Errorf("claimed %q, want %q", a.SessionID, want)
			}
		}
		if a, _ := db.ClaimNextQueued(ctx, t0); a != nil {
			t.Errorf("claimed %q from a queue with only raw rows", a.SessionID)
		}
	})
}

func TestUpsertCompletion(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()

		if err := db.UpsertCompletion(ctx, "s1", models.CompletionCompleted, t0); err != nil {
			t.Fatalf("UpsertCompletion: %v", err)
		}
		a, _ := db.GetAsset(ctx, "s1")
		if a.Status != models.AssetRaw || a.Completion != models.CompletionCompleted {
			t.Errorf("asset = %+v", a)
		}

		if err := db.UpsertCompletion(ctx, "s1", models.CompletionDropped, t0.Add(time.Hour)); err != nil {
			t.Fatalf("UpsertCompletion: %v", err)
		}
		a, _ = db.GetAsset(ctx, "s1")
		if a.Completion != models.CompletionDropped {
			t.Errorf("Completion = %q, want dropped_off", a.Completion)
		}
		if !a.UpdatedAt.Equal(t0) {
			t.Errorf("UpdatedAt = %v, want unchanged %v", a.UpdatedAt, t0)
		}
	})
}

func TestTransitionAsset(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		_, _ = db.CreateAsset(ctx, "s1", models.AssetQueued, t0)
		_, _ = db.ClaimNextQueued(ctx, t0)
		_, _ = db.MarkFailed(ctx, "s1", "renderer exited 1", t0)

		a, _ := db.GetAsset(ctx, "s1")
		if a.LastError != "renderer exited 1" {
			t.Errorf("LastError = %q", a.LastError)
		}

		moved, err := db.TransitionAsset(ctx, "s1", []models.AssetStatus{models.AssetRaw}, models.AssetQueued, t0)
		if err != nil || moved {
			t.Errorf("TransitionAsset(from raw) = %v, %v; want false, nil", moved, err)
		}
		moved, err = db.TransitionAsset(ctx, "s1",
			[]models.AssetStatus{models.AssetRaw, models.AssetFailed}, models.AssetQueued, t0.Add(time.Second))
		if err != nil || !moved {
			t.Fatalf("TransitionAsset(from raw|failed) = %v, %v", moved, err)
		}

		a, _ = db.GetAsset(ctx, "s1")
		if a.Status != models.AssetQueued || a.LastError != "" {
			t.Errorf("asset = %+v", a)
		}
		if _, err := db.TransitionAsset(ctx, "s1", nil, models.AssetQueued, t0); err == nil {
			t.Error("TransitionAsset with no source states error = nil")
		}
	})
}

func TestFailStale(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		_, _ = db.CreateAsset(ctx, "old", models.AssetQueued, t0)
		_, _ = db.CreateAsset(ctx, "new", models.AssetQueued, t0.Add(time.Second))
		_, _ = db.ClaimNextQueued(ctx, t0)                     // old claimed at t0
		_, _ = db.ClaimNextQueued(ctx, t0.Add(45*time.Minute)) // new claimed later

		ids, err := db.FailStale(ctx, t0.Add(30*time.Minute), "worker lost", t0.Add(50*time.Minute))
		if err != nil {
			t.Fatalf("FailStale: %v", err)
		}
		if len(ids) != 1 || ids[0] != "old" {
			t.Errorf("FailStale ids = %v, want [old]", ids)
		}

		stats, err := db.CountAssetsByStatus(ctx)
		if err != nil {
			t.Fatalf("CountAssetsByStatus: %v", err)
		}
		if stats.Failed != 1 || stats.Processing != 1 || stats.Total() != 2 {
			t.Errorf("stats = %+v", stats)
		}

		failed, err := db.ListAssets(ctx, models.AssetFailed, 10)
		if err != nil {
			t.Fatalf("ListAssets: %v", err)
		}
		if len(failed) != 1 || failed[0].LastError != "worker lost" {
			t.Errorf("ListAssets(failed) = %+v", failed)
		}
	})
}

func TestDeleteSession(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		_, _ = db.InsertChunk(ctx, testChunk("s1", 0, t0))
		_, _ = db.InsertChunk(ctx, testChunk("s1", 1, t0))
		_, _ = db.InsertChunk(ctx, testChunk("s2", 0, t0))
		_, _ = db.CreateAsset(ctx, "s1", models.AssetQueued, t0)
		_, _ = db.ClaimNextQueued(ctx, t0)
		_, _ = db.MarkReady(ctx, "s1", "assets/s1/replay.mp4", "assets/s1/timeline.txt", t0)

		deleted, err := db.DeleteSession(ctx, "s1")
		if err != nil {
			t.Fatalf("DeleteSession: %v", err)
		}
		if got := len(deleted.BlobKeys()); got != 4 {
			t.Errorf("len(BlobKeys()) = %d, want 4", got)
		}
		if n, _ := db.CountChunks(ctx, "s1"); n != 0 {
			t.Errorf("CountChunks(s1) = %d after delete", n)
		}
		if n, _ := db.CountChunks(ctx, "s2"); n != 1 {
			t.Errorf("CountChunks(s2) = %d, want 1", n)
		}
		if _, err := db.GetAsset(ctx, "s1"); !errors.Is(err, models.ErrAssetNotFound) {
			t.Errorf("GetAsset after delete error = %v", err)
		}
		if _, err := db.DeleteSession(ctx, "s1"); !errors.Is(err, models.ErrSessionNotFound) {
			t.Errorf("second DeleteSession error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestIsContention(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("TransactionContext Error: Transaction conflict: cannot update a table that has been altered"), true},
		{errors.New("Conflict on update!"), true},
		{errors.New("no such table"), false},
	}
	for _, tt := range tests {
		if got := IsContention(tt.err); got != tt.want {
			t.Errorf("IsContention(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
