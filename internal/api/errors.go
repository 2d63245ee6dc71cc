// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/validation"
)

// writeServiceError maps a service error to a status code and envelope.
// Unknown errors are logged and reported as 500 without their text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	var conflict *models.ConflictError
	switch {
	case errors.As(err, &verr):
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, verr.Error(), verr.Details())
	case errors.Is(err, models.ErrValidation):
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		rw.Unauthorized("Invalid or missing credentials")
	case errors.Is(err, models.ErrForbidden):
		rw.Error(http.StatusForbidden, ErrCodeForbidden, "Origin not allowed for this campaign")
	case errors.Is(err, models.ErrCampaignNotFound):
		rw.NotFound("Campaign not found")
	case errors.Is(err, models.ErrSessionNotFound):
		rw.NotFound("Session not found")
	case errors.Is(err, models.ErrAssetNotFound):
		rw.NotFound("Session has no asset record")
	case errors.As(err, &conflict):
		rw.ErrorWithDetails(http.StatusConflict, ErrCodeConflict, "Session "+conflict.Reason(),
			map[string]interface{}{"current_status": conflict.Current})
	case errors.Is(err, models.ErrIntegrity):
		logging.Ctx(r.Context()).Error().Err(err).Msg("Stored record violates an invariant")
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "Session record is inconsistent")
	case errors.Is(err, models.ErrStorage):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Storage unavailable")
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Storage temporarily unavailable",
			map[string]interface{}{"retryable": true})
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Unhandled service error")
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
	}
}
