// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. Nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a missing or wrong credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks a valid credential used from a disallowed origin or scope.
	ErrForbidden = errors.New("forbidden")

	// ErrSessionNotFound is returned when no chunks are indexed for a session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCampaignNotFound is returned for an unknown campaign id.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrAssetNotFound is returned when a session has no asset row.
	ErrAssetNotFound = errors.New("session asset not found")

	// ErrConflict is the target of errors.Is for every *ConflictError.
	ErrConflict = errors.New("state conflict")

	// ErrStorage marks a blob store or database failure. Callers may retry.
	ErrStorage = errors.New("storage unavailable")

	// ErrProcessing wraps failures while generating derived assets.
	ErrProcessing = errors.New("asset processing failed")

	// ErrIntegrity marks a row that violates a stored invariant, such as a
	// ready session without asset keys.
	ErrIntegrity = errors.New("integrity violation")
)

// ConflictError reports a rejected asset state transition.
type ConflictError struct {
	SessionID string
	Current   AssetStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session %s %s", e.SessionID, e.Reason())
}

// Reason describes the current state in user-facing terms.
func (e *ConflictError) Reason() string {
	switch e.Current {
	case AssetProcessing:
		return "is currently processing"
	case AssetQueued:
		return "is already queued"
	case AssetReady:
		return "assets already generated"
	default:
		return "is in state " + string(e.Current)
	}
}

// Unwrap lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
