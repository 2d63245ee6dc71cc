// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Blob     BlobConfig     `koanf:"blob"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Merge    MergeConfig    `koanf:"merge"`
	Cache    CacheConfig    `koanf:"cache"`
	Queue    QueueConfig    `koanf:"queue"`
	Worker   WorkerConfig   `koanf:"worker"`
	Render   RenderConfig   `koanf:"render"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	PublicURL       string        `koanf:"public_url"` // base for locally signed blob URLs
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// DatabaseConfig selects the chunk index / asset table engine.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // duckdb or sqlite
	Path   string `koanf:"path"`   // ":memory:" for an in-process database
}

// BlobConfig selects the chunk and asset blob store.
type BlobConfig struct {
	Backend        string        `koanf:"backend"` // badger or gcs
	BadgerPath     string        `koanf:"badger_path"`
	BadgerInMemory bool          `koanf:"badger_in_memory"`
	GCSBucket      string        `koanf:"gcs_bucket"`
	GCSCredentials string        `koanf:"gcs_credentials_file"`
	GCSSignerEmail string        `koanf:"gcs_signer_email"`
	UploadURLTTL   time.Duration `koanf:"upload_url_ttl"`
	DownloadURLTTL time.Duration `koanf:"download_url_ttl"`
	MaxObjectBytes int64         `koanf:"max_object_bytes"`
	VideoExtension string        `koanf:"video_extension"`
	VideoMediaType string        `koanf:"video_media_type"`
}

// IngestConfig controls chunk ticketing and confirmation.
type IngestConfig struct {
	VerifyOnConfirm bool `koanf:"verify_on_confirm"`
	MaxBeaconEvents int  `koanf:"max_beacon_events"`
}

// MergeConfig controls the session merge fan-out.
type MergeConfig struct {
	FetchTimeout   time.Duration        `koanf:"fetch_timeout"`
	MaxParallel    int                  `koanf:"max_parallel"` // 0 = unbounded
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig mirrors gobreaker.Settings.
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// CacheConfig bounds the playback cache.
type CacheConfig struct {
	Capacity        int           `koanf:"capacity"`
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	MergeTimeout    time.Duration `koanf:"merge_timeout"`
}

// QueueConfig controls asset queue housekeeping.
type QueueConfig struct {
	StaleAfter      time.Duration `koanf:"stale_after"`
	RecoverInterval time.Duration `koanf:"recover_interval"`
	NotifyBuffer    int64         `koanf:"notify_buffer"`
}

// WorkerConfig controls the asset generation worker.
type WorkerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	PollInterval time.Duration `koanf:"poll_interval"`
	JobTimeout   time.Duration `koanf:"job_timeout"`
}

// RenderConfig configures the external video renderer command.
// Args may reference {input} and {output}.
type RenderConfig struct {
	Command        string               `koanf:"command"`
	Args           []string             `koanf:"args"`
	WorkDir        string               `koanf:"work_dir"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// SecurityConfig holds credentials, CORS and rate limits.
type SecurityConfig struct {
	AdminToken        string           `koanf:"admin_token"`
	BlobTokenSecret   string           `koanf:"blob_token_secret"`
	Campaigns         []CampaignConfig `koanf:"campaigns"`
	CORSOrigins       []string         `koanf:"cors_origins"`
	RateLimitRequests int              `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration    `koanf:"rate_limit_window"`
	RateLimitDisabled bool             `koanf:"rate_limit_disabled"`
}

// CampaignConfig is one capture campaign allowed to upload chunks.
type CampaignConfig struct {
	ID             string   `koanf:"id"`
	Token          string   `koanf:"token"`
	AllowedDomains []string `koanf:"allowed_domains"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
