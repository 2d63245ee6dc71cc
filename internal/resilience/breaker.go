// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package resilience

import (
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/replayline/internal/config"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
)

// Breaker names.
const (
	BlobFetch = "blob_fetch"
	Renderer  = "renderer"
)

// ErrOpen is returned when a call is rejected because the breaker is open
// or the half-open probe budget is spent.
var ErrOpen = errors.New("circuit breaker open")

const defaultFailureThreshold = 5

// NewCircuitBreaker creates a breaker that trips after cfg.FailureThreshold
// consecutive failures. isSuccessful may be nil, in which case only a nil
// error counts as success.
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		IsSuccessful: isSuccessful,
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[T](settings)
}

// Execute runs fn through cb. Rejections by the breaker itself are
// reported as ErrOpen so callers need not import gobreaker.
func Execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrOpen
	}
	return result, err
}
