// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/replayline/internal/api"
	"github.com/tomtom215/replayline/internal/auth"
	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/cache"
	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/database"
	"github.com/tomtom215/replayline/internal/ingest"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/merge"
	"github.com/tomtom215/replayline/internal/queue"
	"github.com/tomtom215/replayline/internal/render"
	"github.com/tomtom215/replayline/internal/supervisor"
	"github.com/tomtom215/replayline/internal/supervisor/services"
	"github.com/tomtom215/replayline/internal/worker"
)

// blobGCInterval is how often the badger value log is compacted.
const blobGCInterval = 10 * time.Minute

// app holds the wired components and what must be closed on exit.
type app struct {
	tree    *supervisor.SupervisorTree
	db      *database.DB
	blobs   blobstore.Store
	pubsub  *gochannel.GoChannel
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.db, err = database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)

	a.blobs, err = openBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.blobs.Close)

	a.pubsub = queue.NewPubSub(cfg.Queue.NotifyBuffer)
	a.closers = append(a.closers, a.pubsub.Close)

	assetQueue := queue.New(a.db, a.pubsub)
	merger := merge.NewMerger(a.db, a.blobs, merge.Config{
		FetchTimeout:   cfg.Merge.FetchTimeout,
		MaxParallel:    cfg.Merge.MaxParallel,
		CircuitBreaker: cfg.Merge.CircuitBreaker,
	})
	playback := cache.NewPlaybackCache(merger, cache.Options{
		Capacity:     cfg.Cache.Capacity,
		TTL:          cfg.Cache.TTL,
		MergeTimeout: cfg.Cache.MergeTimeout,
	})

	a.tree, err = supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	a.addJanitors(cfg, playback, assetQueue)

	if cfg.Worker.Enabled {
		renderer, err := render.NewCommandRenderer(render.Config{
			Command:        cfg.Render.Command,
			Args:           cfg.Render.Args,
			WorkDir:        cfg.Render.WorkDir,
			Extension:      cfg.Blob.VideoExtension,
			ContentType:    cfg.Blob.VideoMediaType,
			CircuitBreaker: cfg.Render.CircuitBreaker,
		})
		if err != nil {
			return nil, fmt.Errorf("create renderer: %w", err)
		}
		a.tree.AddProcessingService(worker.New(assetQueue, merger, a.blobs, renderer, a.pubsub, worker.Config{
			PollInterval: cfg.Worker.PollInterval,
			JobTimeout:   cfg.Worker.JobTimeout,
			StaleAfter:   cfg.Queue.StaleAfter,
		}))
	} else {
		logging.Warn().Msg("Asset worker disabled; queued sessions wait for another instance")
	}

	handler := api.NewHandler(api.Deps{
		Auth: auth.New(&cfg.Security),
		Ingest: ingest.NewService(a.db, a.blobs, ingest.Config{
			UploadURLTTL:    cfg.Blob.UploadURLTTL,
			VerifyOnConfirm: cfg.Ingest.VerifyOnConfirm,
			MaxBeaconEvents: cfg.Ingest.MaxBeaconEvents,
		}),
		Playback: playback,
		Queue:    assetQueue,
		Sessions: a.db,
		Blobs:    a.blobs,
	}, api.Config{
		DownloadURLTTL: cfg.Blob.DownloadURLTTL,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MaxBlobBytes:   cfg.Blob.MaxObjectBytes,
		VideoMediaType: cfg.Blob.VideoMediaType,
	})
	mw := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitRequests,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mw).SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	a.tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	return a, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.Blob.Backend {
	case "gcs":
		store, err := blobstore.NewGCSStore(ctx, blobstore.GCSOptions{
			Bucket:          cfg.Blob.GCSBucket,
			CredentialsFile: cfg.Blob.GCSCredentials,
			SignerEmail:     cfg.Blob.GCSSignerEmail,
		})
		if err != nil {
			return nil, fmt.Errorf("open gcs blob store: %w", err)
		}
		return store, nil
	default:
		signer, err := blobstore.NewTokenSigner(cfg.Security.BlobTokenSecret)
		if err != nil {
			return nil, err
		}
		store, err := blobstore.OpenBadger(blobstore.BadgerOptions{
			Path:      cfg.Blob.BadgerPath,
			InMemory:  cfg.Blob.BadgerInMemory,
			PublicURL: cfg.Server.PublicURL,
		}, signer)
		if err != nil {
			return nil, fmt.Errorf("open badger blob store: %w", err)
		}
		return store, nil
	}
}

// addJanitors registers the periodic housekeeping services.
func (a *app) addJanitors(cfg *config.Config, playback *cache.PlaybackCache, assetQueue *queue.Queue) {
	a.tree.AddDataService(services.NewJanitorService("cache-expiry", cfg.Cache.CleanupInterval,
		func(ctx context.Context) error {
			if n := playback.CleanupExpired(); n > 0 {
				logging.Ctx(ctx).Debug().Int("expired", n).Int("entries", playback.Len()).Msg("Playback cache entries expired")
			}
			return nil
		}))

	a.tree.AddDataService(services.NewJanitorService("stale-recovery", cfg.Queue.RecoverInterval,
		func(ctx context.Context) error {
			_, err := assetQueue.RecoverStale(ctx, cfg.Queue.StaleAfter)
			return err
		}))

	if badger, ok := a.blobs.(*blobstore.BadgerStore); ok && !cfg.Blob.BadgerInMemory {
		a.tree.AddDataService(services.NewJanitorService("blob-gc", blobGCInterval,
			func(context.Context) error {
				return badger.RunGC()
			}))
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Error().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
