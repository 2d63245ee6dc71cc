// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/replayline/internal/auth"
	"github.com/tomtom215/replayline/internal/logging"
)

// ChiMiddlewareConfig holds CORS and rate limit settings.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory. An empty origin list
// disables cross-origin access except for the ingest routes, which carry
// their own campaign origin check.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config.RateLimitRequests <= 0 {
		config.RateLimitRequests = 300
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = time.Minute
	}
	if config.CORSMaxAge <= 0 {
		config.CORSMaxAge = 600
	}
	return &ChiMiddleware{
		config: config,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: config.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", auth.CampaignTokenHeader},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         config.CORSMaxAge,
		}),
	}
}

// CORS returns the operator-facing CORS middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// IngestCORS allows any origin to reach the capture endpoints. Which
// origins may actually write is decided per campaign.
func (m *ChiMiddleware) IngestCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(*http.Request, string) bool { return true },
		AllowedMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:  []string{"Content-Type", "Content-Encoding", auth.CampaignTokenHeader},
		MaxAge:          m.config.CORSMaxAge,
	})
}

// SessionCORS applies IngestCORS to completion calls and CORS to the
// operator routes that share the session prefix. It must run before
// routing so preflight requests are answered.
func (m *ChiMiddleware) SessionCORS() func(http.Handler) http.Handler {
	ingestCORS := m.IngestCORS()
	return func(next http.Handler) http.Handler {
		ingest, operator := ingestCORS(next), m.cors(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/completion") {
				ingest.ServeHTTP(w, r)
				return
			}
			operator.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per client IP.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.rateLimit(m.config.RateLimitRequests, m.config.RateLimitWindow)
}

// RateLimitIngest allows a higher rate for capture traffic, which arrives
// in bursts from many tabs behind the same NAT.
func (m *ChiMiddleware) RateLimitIngest() func(http.Handler) http.Handler {
	return m.rateLimit(m.config.RateLimitRequests*10, m.config.RateLimitWindow)
}

func (m *ChiMiddleware) rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests, ErrCodeTooManyRequests, "Rate limit exceeded")
		}),
	)
}

// APISecurityHeaders sets headers appropriate for JSON API responses.
func APISecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without the operator bearer token.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.AuthorizeAdmin(auth.BearerToken(r)); err != nil {
			logging.Ctx(r.Context()).Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("Rejected admin request")
			writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
