// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package blobstore holds chunk payloads and derived session assets.
//
// Two backends implement Store:
//
//   - BadgerStore keeps blobs in an embedded BadgerDB. Its signed URLs point
//     at this server's /api/v1/blobs/ endpoint and carry an HS256 token
//     scoped to one key and one operation.
//   - GCSStore keeps blobs in a Google Cloud Storage bucket and hands out V4
//     signed URLs, so browsers upload directly to the bucket.
//
// Key layout:
//
//	chunks/<campaign>/<session>/<sequence:06d>-<uuid>.json.gz
//	assets/<session>/timeline.txt
//	assets/<session>/replay.<ext>
package blobstore
