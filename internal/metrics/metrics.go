// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "replayline_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replayline_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "replayline_db_query_duration_seconds",
			Help:    "Duration of chunk index and asset table queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_db_query_errors_total",
			Help: "Total number of failed database queries",
		},
		[]string{"operation", "table"},
	)

	// Ingestion Metrics
	IngestTickets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_ingest_tickets_total",
			Help: "Upload tickets issued, by outcome",
		},
		[]string{"outcome"}, // "issued", "invalid", "storage_error"
	)

	IngestChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_ingest_chunks_total",
			Help: "Chunk confirmations and direct writes, by path and outcome",
		},
		[]string{"path", "outcome"}, // path: "confirm", "beacon"; outcome: "created", "duplicate", "invalid", "storage_error"
	)

	IngestBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replayline_ingest_beacon_bytes_total",
			Help: "Compressed bytes written through the beacon path",
		},
	)

	// Merge Metrics
	MergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replayline_merge_duration_seconds",
			Help:    "Time to fetch and assemble a session's chunks",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	MergeChunksFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replayline_merge_chunks_fetched_total",
			Help: "Chunks fetched and decoded successfully during merges",
		},
	)

	MergeChunkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_merge_chunk_failures_total",
			Help: "Chunks skipped during merges, by reason",
		},
		[]string{"reason"}, // "fetch", "timeout", "decode", "circuit_open"
	)

	// Playback Cache Metrics
	PlaybackCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replayline_playback_cache_hits_total",
			Help: "Merged sessions served from the playback cache",
		},
	)

	PlaybackCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replayline_playback_cache_misses_total",
			Help: "Merged sessions built on demand",
		},
	)

	PlaybackCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "replayline_playback_cache_entries",
			Help: "Current number of cached merged sessions",
		},
	)

	// Queue Metrics
	QueueTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_queue_transitions_total",
			Help: "Asset state transitions, by target state and trigger",
		},
		[]string{"to", "trigger"}, // trigger: "dropped_off", "manual", "claim", "complete", "fail", "recover"
	)

	QueueSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "replayline_queue_sessions",
			Help: "Sessions per asset state at the last stats refresh",
		},
		[]string{"state"},
	)

	// Worker Metrics
	WorkerJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replayline_worker_job_duration_seconds",
			Help:    "Time to generate assets for one session",
			Buckets: []float64{.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	WorkerJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_worker_jobs_total",
			Help: "Asset jobs processed, by outcome",
		},
		[]string{"outcome"}, // "ready", "failed"
	)

	WorkerRecoveredJobs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replayline_worker_recovered_jobs_total",
			Help: "Stale processing claims moved to failed",
		},
	)

	// Janitor Metrics
	JanitorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_janitor_runs_total",
			Help: "Housekeeping passes, by janitor and outcome",
		},
		[]string{"janitor", "outcome"}, // "ok", "error"
	)

	JanitorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "replayline_janitor_duration_seconds",
			Help:    "Duration of housekeeping passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"janitor"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "replayline_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replayline_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordChunk records a confirmed or directly written chunk.
func RecordChunk(path, outcome string) {
	IngestChunks.WithLabelValues(path, outcome).Inc()
}

// RecordMerge records a completed merge.
func RecordMerge(duration time.Duration, fetched int) {
	MergeDuration.Observe(duration.Seconds())
	MergeChunksFetched.Add(float64(fetched))
}

// RecordTransition records an asset state transition.
func RecordTransition(to, trigger string) {
	QueueTransitions.WithLabelValues(to, trigger).Inc()
}

// RecordJob records one finished worker job.
func RecordJob(duration time.Duration, err error) {
	WorkerJobDuration.Observe(duration.Seconds())
	if err != nil {
		WorkerJobs.WithLabelValues("failed").Inc()
		return
	}
	WorkerJobs.WithLabelValues("ready").Inc()
}

// RecordJanitorRun records one housekeeping pass.
func RecordJanitorRun(name string, duration time.Duration, err error) {
	JanitorDuration.WithLabelValues(name).Observe(duration.Seconds())
	if err != nil {
		JanitorRuns.WithLabelValues(name, "error").Inc()
		return
	}
	JanitorRuns.WithLabelValues(name, "ok").Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
// States are gobreaker's: "closed", "half-open", "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
