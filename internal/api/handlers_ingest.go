// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"net/http"

	"github.com/tomtom215/replayline/internal/auth"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/validation"
)

// chunkResult reports whether a chunk call created a new index row.
type chunkResult struct {
	SessionID string `json:"session_id"`
	Sequence  int    `json:"sequence"`
	Created   bool   `json:"created"`
}

// IngestTicket issues a signed upload URL for one chunk.
func (h *Handler) IngestTicket(w http.ResponseWriter, r *http.Request) {
	var req models.TicketRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.AuthorizeCampaign(req.CampaignID, auth.CampaignToken(r), auth.RequestOrigin(r)); err != nil {
		h.logRejected(r, req.CampaignID, err)
		writeServiceError(w, r, err)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), req.SessionID)
	ticket, err := h.ingest.RequestUploadTicket(ctx, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(ticket)
}

// IngestConfirm records an uploaded chunk. Repeating a confirmation is
// harmless and returns created=false.
func (h *Handler) IngestConfirm(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.AuthorizeCampaign(req.CampaignID, auth.CampaignToken(r), auth.RequestOrigin(r)); err != nil {
		h.logRejected(r, req.CampaignID, err)
		writeServiceError(w, r, err)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), req.SessionID)
	created, err := h.ingest.ConfirmChunk(ctx, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result := chunkResult{SessionID: req.SessionID, Sequence: req.Sequence, Created: created}
	if created {
		NewResponseWriter(w, r).Created(result)
		return
	}
	NewResponseWriter(w, r).Success(result)
}

// IngestBeacon stores a final chunk sent with navigator.sendBeacon. The
// campaign and token come from the query string because beacons cannot
// set headers.
func (h *Handler) IngestBeacon(w http.ResponseWriter, r *http.Request) {
	campaignID := r.URL.Query().Get("campaign_id")
	if campaignID == "" {
		writeServiceError(w, r, validation.NewFieldError("campaign_id", "required", "campaign_id query parameter is required"))
		return
	}
	if err := h.auth.AuthorizeToken(campaignID, auth.CampaignToken(r)); err != nil {
		h.logRejected(r, campaignID, err)
		writeServiceError(w, r, err)
		return
	}

	var req models.DirectWriteRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.CampaignID == "" {
		req.CampaignID = campaignID
	}
	if req.CampaignID != campaignID {
		writeServiceError(w, r, validation.NewFieldError("campaign_id", "eqfield", "campaign_id in body does not match query"))
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), req.SessionID)
	created, err := h.ingest.DirectWrite(ctx, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Accepted(chunkResult{SessionID: req.SessionID, Sequence: req.Sequence, Created: created})
}

func (h *Handler) logRejected(r *http.Request, campaignID string, err error) {
	logging.Ctx(r.Context()).Warn().
		Err(err).
		Str("campaign_id", campaignID).
		Str("token", logging.SanitizeToken(auth.CampaignToken(r))).
		Str("origin", logging.SanitizeURL(auth.RequestOrigin(r))).
		Msg("Rejected ingest request")
}
