// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	testAdminToken = "admin-token-0123456789"
	testBlobSecret = "blob-secret-0123456789abcdef0123456789"
)

// setRequiredEnv sets the variables Validate insists on.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ADMIN_TOKEN", testAdminToken)
	t.Setenv("BLOB_TOKEN_SECRET", testBlobSecret)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 3857 {
		t.Errorf("Server.Port = %d, want 3857", cfg.Server.Port)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Blob.Backend != "badger" {
		t.Errorf("Blob.Backend = %q, want badger", cfg.Blob.Backend)
	}
	if !cfg.Ingest.VerifyOnConfirm {
		t.Error("Ingest.VerifyOnConfirm should be true by default")
	}
	if cfg.Merge.FetchTimeout != 10*time.Second {
		t.Errorf("Merge.FetchTimeout = %v, want 10s", cfg.Merge.FetchTimeout)
	}
	if cfg.Cache.Capacity != 100 {
		t.Errorf("Cache.Capacity = %d, want 100", cfg.Cache.Capacity)
	}
	if cfg.Cache.MergeTimeout != 30*time.Second {
		t.Errorf("Cache.MergeTimeout = %v, want 30s", cfg.Cache.MergeTimeout)
	}
	if cfg.Worker.Enabled {
		t.Error("Worker.Enabled should be false by default")
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"DATABASE_DRIVER", "database.driver"},
		{"BLOB_BACKEND", "blob.backend"},
		{"MERGE_MAX_PARALLEL", "merge.max_parallel"},
		{"WORKER_JOB_TIMEOUT", "worker.job_timeout"},
		{"RENDER_CB_FAILURE_THRESHOLD", "render.circuit_breaker.failure_threshold"},
		{"admin_token", "security.admin_token"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.input); got != tt.expected {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadEnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", ":memory:")
	t.Setenv("MERGE_FETCH_TIMEOUT", "3s")
	t.Setenv("INGEST_VERIFY_ON_CONFIRM", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Merge.FetchTimeout != 3*time.Second {
		t.Errorf("Merge.FetchTimeout = %v, want 3s", cfg.Merge.FetchTimeout)
	}
	if cfg.Ingest.VerifyOnConfirm {
		t.Error("Ingest.VerifyOnConfirm = true, want false")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_CAPACITY", "7")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
cache:
  capacity: 50
  ttl: 2m
security:
  campaigns:
    - id: spring
      token: spring-token
      allowed_domains: ["shop.example.com", "example.com"]
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// env beats file
	if cfg.Cache.Capacity != 7 {
		t.Errorf("Cache.Capacity = %d, want 7", cfg.Cache.Capacity)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("Cache.TTL = %v, want 2m", cfg.Cache.TTL)
	}
	if len(cfg.Security.Campaigns) != 1 {
		t.Fatalf("len(Campaigns) = %d, want 1", len(cfg.Security.Campaigns))
	}
	c := cfg.Security.Campaigns[0]
	if c.ID != "spring" || c.Token != "spring-token" || len(c.AllowedDomains) != 2 {
		t.Errorf("Campaign = %+v", c)
	}
}

func TestFindConfigFile_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("server: {}"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.AdminToken = testAdminToken
		cfg.Security.BlobTokenSecret = testBlobSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with secrets", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, "DATABASE_DRIVER"},
		{"short admin token", func(c *Config) { c.Security.AdminToken = "short" }, "ADMIN_TOKEN"},
		{"short blob secret", func(c *Config) { c.Security.BlobTokenSecret = "x" }, "BLOB_TOKEN_SECRET"},
		{"gcs without bucket", func(c *Config) { c.Blob.Backend = "gcs" }, "BLOB_GCS_BUCKET"},
		{"gcs with bucket ignores secret", func(c *Config) {
			c.Blob.Backend = "gcs"
			c.Blob.GCSBucket = "replays"
			c.Security.BlobTokenSecret = ""
		}, ""},
		{"worker without renderer", func(c *Config) { c.Worker.Enabled = true }, "RENDER_COMMAND"},
		{"worker with renderer", func(c *Config) {
			c.Worker.Enabled = true
			c.Render.Command = "/usr/local/bin/render-replay"
		}, ""},
		{"stale cutoff below job timeout", func(c *Config) {
			c.Worker.Enabled = true
			c.Render.Command = "render"
			c.Queue.StaleAfter = time.Minute
		}, "QUEUE_STALE_AFTER"},
		{"duplicate campaign", func(c *Config) {
			c.Security.Campaigns = []CampaignConfig{{ID: "a", Token: "t"}, {ID: "a", Token: "u"}}
		}, "duplicate id"},
		{"campaign without token", func(c *Config) {
			c.Security.Campaigns = []CampaignConfig{{ID: "a"}}
		}, "token is required"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", got)
	}
}
