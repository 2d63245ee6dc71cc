// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateBlob(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "duckdb", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be duckdb or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

func (c *Config) validateBlob() error {
	switch c.Blob.Backend {
	case "badger":
		if !c.Blob.BadgerInMemory && c.Blob.BadgerPath == "" {
			return fmt.Errorf("BLOB_BADGER_PATH is required for the badger backend")
		}
		// Locally signed URLs point back at this server.
		if _, err := url.ParseRequestURI(c.Server.PublicURL); err != nil {
			return fmt.Errorf("PUBLIC_URL must be an absolute URL: %w", err)
		}
		if len(c.Security.BlobTokenSecret) < 32 {
			return fmt.Errorf("BLOB_TOKEN_SECRET must be at least 32 characters for the badger backend")
		}
	case "gcs":
		if c.Blob.GCSBucket == "" {
			return fmt.Errorf("BLOB_GCS_BUCKET is required for the gcs backend")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be badger or gcs, got %q", c.Blob.Backend)
	}
	if c.Blob.UploadURLTTL <= 0 || c.Blob.DownloadURLTTL <= 0 {
		return fmt.Errorf("signed URL lifetimes must be positive")
	}
	if c.Blob.VideoExtension == "" {
		return fmt.Errorf("BLOB_VIDEO_EXTENSION is required")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if !c.Worker.Enabled {
		return nil
	}
	if c.Render.Command == "" {
		return fmt.Errorf("RENDER_COMMAND is required when WORKER_ENABLED=true")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("WORKER_JOB_TIMEOUT must be positive")
	}
	if c.Queue.StaleAfter <= c.Worker.JobTimeout {
		return fmt.Errorf("QUEUE_STALE_AFTER (%s) must exceed WORKER_JOB_TIMEOUT (%s)",
			c.Queue.StaleAfter, c.Worker.JobTimeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.AdminToken) < 16 {
		return fmt.Errorf("ADMIN_TOKEN must be at least 16 characters")
	}
	seen := make(map[string]struct{}, len(c.Security.Campaigns))
	for i, campaign := range c.Security.Campaigns {
		if campaign.ID == "" {
			return fmt.Errorf("security.campaigns[%d]: id is required", i)
		}
		if _, dup := seen[campaign.ID]; dup {
			return fmt.Errorf("security.campaigns[%d]: duplicate id %q", i, campaign.ID)
		}
		seen[campaign.ID] = struct{}{}
		if campaign.Token == "" {
			return fmt.Errorf("security.campaigns[%d]: token is required", i)
		}
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQS must be positive unless DISABLE_RATE_LIMIT=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
