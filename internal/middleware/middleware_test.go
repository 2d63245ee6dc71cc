// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var capturedID, correlationID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = logging.RequestIDFromContext(r.Context())
		correlationID = logging.CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	responseID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if capturedID != responseID {
		t.Errorf("context request id = %q, want %q", capturedID, responseID)
	}
	if correlationID == "" {
		t.Error("correlation id missing from context")
	}
}

func TestRequestID_Upstream(t *testing.T) {
	tests := []struct {
		name     string
		upstream string
		keep     bool
	}{
		{"well formed", "edge-7f3a.42", true},
		{"newline injection", "abc\nlevel=error", false},
		{"space", "a b", false},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		handler := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, tt.upstream)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get(RequestIDHeader)
		if (got == tt.upstream) != tt.keep {
			t.Errorf("%s: X-Request-ID = %q, keep upstream = %v", tt.name, got, tt.keep)
		}
	}
}

func TestPrometheusMetrics_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/sessions/{id}/events", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	pattern := "/api/v1/sessions/{id}/events"
	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", pattern, "418"))

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/events", nil))
	}

	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", pattern, "418"))
	if after-before != 3 {
		t.Errorf("requests for %s = %v, want 3", pattern, after-before)
	}

	beforeMissing := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")) - beforeMissing; got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestCompression(t *testing.T) {
	body := strings.Repeat("[00:01.5] Clicked: \"Checkout\"\n", 200)
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))

	tests := []struct {
		accept string
		gzip   bool
	}{
		{"gzip, deflate, br", true},
		{"br;q=1.0, GZIP;q=0.5", true},
		{"gzip;q=0", false},
		{"deflate", false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/timeline", nil)
		req.Header.Set("Accept-Encoding", tt.accept)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		encoded := rec.Header().Get("Content-Encoding") == "gzip"
		if encoded != tt.gzip {
			t.Errorf("Accept-Encoding %q: gzip = %v, want %v", tt.accept, encoded, tt.gzip)
			continue
		}
		got := rec.Body.String()
		if encoded {
			zr, err := gzip.NewReader(rec.Body)
			if err != nil {
				t.Fatalf("gzip.NewReader() error = %v", err)
			}
			raw, err := io.ReadAll(zr)
			if err != nil {
				t.Fatalf("read gzip body: %v", err)
			}
			got = string(raw)
		}
		if got != body {
			t.Errorf("Accept-Encoding %q: body mismatch (%d bytes, want %d)", tt.accept, len(got), len(body))
		}
	}
}
