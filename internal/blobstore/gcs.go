// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/tomtom215/replayline/internal/logging"
)

// GCSOptions configures a GCSStore.
type GCSOptions struct {
	Bucket string

	// CredentialsFile is a service account key. Empty uses Application
	// Default Credentials.
	CredentialsFile string

	// SignerEmail overrides the service account used to sign URLs when the
	// credentials cannot sign on their own.
	SignerEmail string
}

// GCSStore keeps blobs in a Google Cloud Storage bucket.
type GCSStore struct {
	client      *storage.Client
	bucket      *storage.BucketHandle
	bucketName  string
	signerEmail string
}

// NewGCSStore creates a client for one bucket.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		if _, err := os.Stat(opts.CredentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not found at path %s: %w", opts.CredentialsFile, err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	logging.Info().Str("bucket", opts.Bucket).Msg("GCS blob store configured")
	return &GCSStore{
		client:      client,
		bucket:      client.Bucket(opts.Bucket),
		bucketName:  opts.Bucket,
		signerEmail: opts.SignerEmail,
	}, nil
}

// Name returns the bucket name.
func (s *GCSStore) Name() string { return s.bucketName }

// Put uploads data to key.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, max-age=0"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucketName, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", key, err)
	}
	return nil
}

// Get downloads key.
func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, translateGCSError(key, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucketName, key, err)
	}
	return data, nil
}

// Exists reports whether key exists in the bucket.
func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(translateGCSError(key, err), ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("stat gs://%s/%s: %w", s.bucketName, key, err)
}

// Delete removes key. Missing objects are ignored.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if err == nil || errors.Is(translateGCSError(key, err), ErrNotFound) {
		return nil
	}
	return fmt.Errorf("delete gs://%s/%s: %w", s.bucketName, key, err)
}

// SignedUploadURL returns a V4 signed PUT URL for key.
func (s *GCSStore) SignedUploadURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return s.signedURL(key, http.MethodPut, contentType, ttl)
}

// SignedDownloadURL returns a V4 signed GET URL for key.
func (s *GCSStore) SignedDownloadURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return s.signedURL(key, http.MethodGet, "", ttl)
}

func (s *GCSStore) signedURL(key, method, contentType string, ttl time.Duration) (string, error) {
	u, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         method,
		ContentType:    contentType,
		Expires:        time.Now().Add(ttl),
		GoogleAccessID: s.signerEmail,
	})
	if err != nil {
		return "", fmt.Errorf("sign %s URL for %s: %w", method, key, err)
	}
	return u, nil
}

// Close closes the GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func translateGCSError(key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return err
}
