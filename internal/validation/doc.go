// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

// Package validation wraps go-playground/validator v10 for request validation.
//
// Custom tags:
//
//	sessionid  1-128 characters of [A-Za-z0-9_-]
//	slug       1-64 characters of [A-Za-z0-9_-] (campaign ids)
//	blobkey    a chunk key as produced by blobstore.ChunkKey
//
// Usage:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return verr // errors.Is(verr, models.ErrValidation) == true
//	}
package validation
