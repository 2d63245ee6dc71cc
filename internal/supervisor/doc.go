// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package supervisor runs the long-lived parts of the server under a suture v4
supervisor tree.

The tree has three layers, each its own supervisor so a crash loop in one
layer does not restart the others:

	replayline (root)
	├── data-layer        janitors: cache expiry, stale claim recovery, blob GC
	├── processing-layer  asset worker
	└── api-layer         HTTP server

Supervisor events (service failures, restarts, backoff) are logged through
sutureslog, which writes to the zerolog logger via the slog adapter.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewJanitorService("cache-expiry", time.Minute, expire))
	tree.AddProcessingService(assetWorker)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
