// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package auth

import (
	"net/http"
	"strings"
)

// CampaignTokenHeader carries the campaign token on ingestion calls.
const CampaignTokenHeader = "X-Campaign-Token"

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// CampaignToken returns the campaign token from the dedicated header, a
// bearer header, or the token query parameter used by sendBeacon calls,
// in that order.
func CampaignToken(r *http.Request) string {
	if t := r.Header.Get(CampaignTokenHeader); t != "" {
		return t
	}
	if t := BearerToken(r); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

// RequestOrigin returns the Origin header, or the Referer when the
// browser omitted Origin.
func RequestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	return r.Header.Get("Referer")
}
