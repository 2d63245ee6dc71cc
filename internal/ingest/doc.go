// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package ingest accepts session chunks from the capture script.
//
// The normal path is two calls:
//
//  1. RequestUploadTicket returns a short-lived signed URL and a fresh blob key.
//  2. The browser PUTs the gzip payload to that URL, then ConfirmChunk
//     records the chunk in the index.
//
// Uploads never block on each other: ordering is decided at merge time and a
// repeated (session, sequence) confirmation is a no-op.
//
// DirectWrite is the degraded single-call path used by the unload beacon.
// It gives no delivery guarantee to the client.
package ingest
