// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package logging

import "strings"

// SanitizeToken masks a secret for logging, keeping a short prefix so
// operators can tell tokens apart.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "[REDACTED]"
	}
	return token[:4] + "...[REDACTED]"
}

// SanitizeURL strips the query string from a URL before logging.
// Signed upload and download URLs carry their credentials in the query.
func SanitizeURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i] + "?[REDACTED]"
	}
	return raw
}
