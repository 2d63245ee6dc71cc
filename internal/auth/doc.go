// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package auth checks the two credentials the service accepts.

Campaign tokens are embedded in the capture script of one site. They
authorize ingestion and completion calls for a single campaign and, when
the campaign lists allowed domains, only from pages on those domains (the
request Origin, or Referer when Origin is absent, must be the domain or
one of its subdomains).

The admin token authorizes operator endpoints: playback, manual enqueue,
asset status, deletion and queue statistics.

All token comparisons are constant time.
*/
package auth
