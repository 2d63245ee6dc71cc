// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

/*
Package resilience builds circuit breakers for calls to external collaborators.

Breakers are gobreaker v2 instances whose state changes are logged and
exported as Prometheus metrics. Two breakers exist at runtime:

  - "blob_fetch": chunk reads during session merge
  - "renderer": the external video render command

A missing object is not a collaborator failure, so callers pass an
IsSuccessful predicate that keeps not-found errors from tripping the breaker.
*/
package resilience
