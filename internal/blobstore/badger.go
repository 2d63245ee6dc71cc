// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/replayline/internal/logging"
)

const blobKeyPrefix = "blob:"

// BlobRoute is the HTTP path prefix the API serves local blobs under.
const BlobRoute = "/api/v1/blobs/"

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	Path     string
	InMemory bool

	// PublicURL is the externally reachable base URL of this server.
	PublicURL string

	// GCRatio is the discard ratio for value log GC (default 0.5).
	GCRatio float64
}

// BadgerStore keeps blobs in an embedded BadgerDB.
type BadgerStore struct {
	db      *badger.DB
	signer  *TokenSigner
	baseURL string
	name    string
	gcRatio float64
}

// OpenBadger opens (or creates) a BadgerStore.
func OpenBadger(opts BadgerOptions, signer *TokenSigner) (*BadgerStore, error) {
	if signer == nil {
		return nil, fmt.Errorf("badger blob store requires a token signer")
	}

	bopts := badger.DefaultOptions(opts.Path)
	name := opts.Path
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
		name = "memory"
	}
	// Reduce logging verbosity
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	gcRatio := opts.GCRatio
	if gcRatio <= 0 || gcRatio >= 1 {
		gcRatio = 0.5
	}

	logging.Info().Str("path", name).Msg("Badger blob store opened")
	return &BadgerStore{
		db:      db,
		signer:  signer,
		baseURL: strings.TrimRight(opts.PublicURL, "/"),
		name:    name,
		gcRatio: gcRatio,
	}, nil
}

// Name returns the store location.
func (s *BadgerStore) Name() string { return s.name }

// Put stores data under key, replacing any previous value.
func (s *BadgerStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blobKeyPrefix+key), data)
	})
	if err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}

// Get returns the blob stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobKeyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether key has a blob.
func (s *BadgerStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(blobKeyPrefix + key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Missing keys are ignored.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(blobKeyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

// SignedUploadURL returns a URL on this server that accepts one PUT of key.
func (s *BadgerStore) SignedUploadURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return s.signedURL(key, OpUpload, contentType, ttl)
}

// SignedDownloadURL returns a URL on this server that serves key.
func (s *BadgerStore) SignedDownloadURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return s.signedURL(key, OpDownload, "", ttl)
}

func (s *BadgerStore) signedURL(key, op, contentType string, ttl time.Duration) (string, error) {
	token, err := s.signer.Sign(key, op, contentType, ttl)
	if err != nil {
		return "", err
	}
	return s.baseURL + BlobRoute + key + "?token=" + url.QueryEscape(token), nil
}

// VerifyToken checks a token presented to the local blob endpoint.
func (s *BadgerStore) VerifyToken(token, key, op string) (string, error) {
	return s.signer.Verify(token, key, op)
}

// RunGC reclaims value log space until nothing more can be rewritten.
func (s *BadgerStore) RunGC() error {
	for {
		err := s.db.RunValueLogGC(s.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
