// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/replayline/config.yaml",
	"/etc/replayline/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3857,
			PublicURL:       "http://localhost:3857",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    2 << 20,
		},
		Database: DatabaseConfig{
			Driver: "duckdb",
			Path:   "/data/replayline.duckdb",
		},
		Blob: BlobConfig{
			Backend:        "badger",
			BadgerPath:     "/data/blobs",
			UploadURLTTL:   15 * time.Minute,
			DownloadURLTTL: time.Hour,
			MaxObjectBytes: 10 << 20,
			VideoExtension: "mp4",
			VideoMediaType: "video/mp4",
		},
		Ingest: IngestConfig{
			VerifyOnConfirm: true,
			MaxBeaconEvents: 5000,
		},
		Merge: MergeConfig{
			FetchTimeout: 10 * time.Second,
			MaxParallel:  16,
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      3,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 10,
			},
		},
		Cache: CacheConfig{
			Capacity:        100,
			TTL:             10 * time.Minute,
			CleanupInterval: time.Minute,
			MergeTimeout:    30 * time.Second,
		},
		Queue: QueueConfig{
			StaleAfter:      30 * time.Minute,
			RecoverInterval: 5 * time.Minute,
			NotifyBuffer:    64,
		},
		Worker: WorkerConfig{
			Enabled:      false,
			PollInterval: 5 * time.Second,
			JobTimeout:   10 * time.Minute,
		},
		Render: RenderConfig{
			Args: []string{"{input}", "{output}"},
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      1,
				Interval:         10 * time.Minute,
				Timeout:          2 * time.Minute,
				FailureThreshold: 3,
			},
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the environment.
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DATABASE_DRIVER -> database.driver, WORKER_JOB_TIMEOUT -> worker.job_timeout
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"render.args",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"public_url":            "server.public_url",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",

	"database_driver": "database.driver",
	"database_path":   "database.path",

	"blob_backend":              "blob.backend",
	"blob_badger_path":          "blob.badger_path",
	"blob_badger_in_memory":     "blob.badger_in_memory",
	"blob_gcs_bucket":           "blob.gcs_bucket",
	"blob_gcs_credentials_file": "blob.gcs_credentials_file",
	"blob_gcs_signer_email":     "blob.gcs_signer_email",
	"blob_upload_url_ttl":       "blob.upload_url_ttl",
	"blob_download_url_ttl":     "blob.download_url_ttl",
	"blob_max_object_bytes":     "blob.max_object_bytes",
	"blob_video_extension":      "blob.video_extension",
	"blob_video_media_type":     "blob.video_media_type",

	"ingest_verify_on_confirm": "ingest.verify_on_confirm",
	"ingest_max_beacon_events": "ingest.max_beacon_events",

	"merge_fetch_timeout":        "merge.fetch_timeout",
	"merge_max_parallel":         "merge.max_parallel",
	"merge_cb_failure_threshold": "merge.circuit_breaker.failure_threshold",
	"merge_cb_timeout":           "merge.circuit_breaker.timeout",

	"cache_capacity":         "cache.capacity",
	"cache_ttl":              "cache.ttl",
	"cache_cleanup_interval": "cache.cleanup_interval",
	"cache_merge_timeout":    "cache.merge_timeout",

	"queue_stale_after":      "queue.stale_after",
	"queue_recover_interval": "queue.recover_interval",
	"queue_notify_buffer":    "queue.notify_buffer",

	"worker_enabled":       "worker.enabled",
	"worker_poll_interval": "worker.poll_interval",
	"worker_job_timeout":   "worker.job_timeout",

	"render_command":              "render.command",
	"render_args":                 "render.args",
	"render_work_dir":             "render.work_dir",
	"render_cb_failure_threshold": "render.circuit_breaker.failure_threshold",
	"render_cb_timeout":           "render.circuit_breaker.timeout",

	"admin_token":        "security.admin_token",
	"blob_token_secret":  "security.blob_token_secret",
	"cors_origins":       "security.cors_origins",
	"rate_limit_reqs":    "security.rate_limit_reqs",
	"rate_limit_window":  "security.rate_limit_window",
	"disable_rate_limit": "security.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
