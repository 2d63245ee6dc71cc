// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/replayline/internal/blobstore"
	"github.com/tomtom215/replayline/internal/logging"
	"github.com/tomtom215/replayline/internal/metrics"
	"github.com/tomtom215/replayline/internal/models"
	"github.com/tomtom215/replayline/internal/validation"
)

// ChunkIndex records chunk rows.
type ChunkIndex interface {
	InsertChunk(ctx context.Context, c *models.Chunk) (bool, error)
}

// Config controls ingestion behavior.
type Config struct {
	UploadURLTTL    time.Duration
	VerifyOnConfirm bool
	MaxBeaconEvents int
}

// Service issues upload tickets and records chunks.
type Service struct {
	index ChunkIndex
	store blobstore.Store
	cfg   Config
	now   func() time.Time
}

// NewService creates an ingestion service.
func NewService(index ChunkIndex, store blobstore.Store, cfg Config) *Service {
	if cfg.UploadURLTTL <= 0 {
		cfg.UploadURLTTL = 15 * time.Minute
	}
	return &Service{index: index, store: store, cfg: cfg, now: time.Now}
}

// RequestUploadTicket validates the request and returns a signed upload
// target for one chunk. Nothing is written.
func (s *Service) RequestUploadTicket(ctx context.Context, req *models.TicketRequest) (*models.Ticket, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		metrics.IngestTickets.WithLabelValues("invalid").Inc()
		return nil, verr
	}

	key := blobstore.ChunkKey(req.CampaignID, req.SessionID, req.Sequence)
	expires := s.now().Add(s.cfg.UploadURLTTL)
	uploadURL, err := s.store.SignedUploadURL(ctx, key, blobstore.ChunkContentType, s.cfg.UploadURLTTL)
	if err != nil {
		metrics.IngestTickets.WithLabelValues("storage_error").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("session_id", req.SessionID).Msg("Failed to sign chunk upload URL")
		return nil, fmt.Errorf("%w: sign upload url: %w", models.ErrStorage, err)
	}

	metrics.IngestTickets.WithLabelValues("issued").Inc()
	return &models.Ticket{
		UploadURL:       uploadURL,
		Method:          http.MethodPut,
		ContentType:     blobstore.ChunkContentType,
		ContentEncoding: blobstore.ChunkEncoding,
		BlobKey:         key,
		ExpiresAt:       expires,
	}, nil
}

// ConfirmChunk records an uploaded chunk. created is false when the
// session already had a chunk with this sequence; that is not an error.
//
// If the index write fails after a successful upload the blob is orphaned.
func (s *Service) ConfirmChunk(ctx context.Context, req *models.ConfirmRequest) (created bool, err error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		metrics.RecordChunk("confirm", "invalid")
		return false, verr
	}
	if verr := checkKeyOwnership(req.BlobKey, req.CampaignID, req.SessionID, req.Sequence); verr != nil {
		metrics.RecordChunk("confirm", "invalid")
		return false, verr
	}

	if s.cfg.VerifyOnConfirm {
		exists, err := s.store.Exists(ctx, req.BlobKey)
		if err != nil {
			metrics.RecordChunk("confirm", "storage_error")
			return false, fmt.Errorf("%w: check blob %s: %w", models.ErrStorage, req.BlobKey, err)
		}
		if !exists {
			metrics.RecordChunk("confirm", "storage_error")
			return false, fmt.Errorf("%w: blob %s has not been uploaded", models.ErrStorage, req.BlobKey)
		}
	}

	created, err = s.index.InsertChunk(ctx, &models.Chunk{
		SessionID:  req.SessionID,
		Sequence:   req.Sequence,
		BlobKey:    req.BlobKey,
		CapturedAt: time.UnixMilli(req.CapturedAt).UTC(),
		CampaignID: req.CampaignID,
		DeviceID:   req.DeviceID,
		PageURL:    req.PageURL,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		metrics.RecordChunk("confirm", "storage_error")
		logging.Ctx(ctx).Error().Err(err).
			Str("session_id", req.SessionID).
			Str("blob_key", req.BlobKey).
			Msg("Chunk index write failed, blob is orphaned")
		return false, fmt.Errorf("%w: %w", models.ErrStorage, err)
	}

	if created {
		metrics.RecordChunk("confirm", "created")
	} else {
		metrics.RecordChunk("confirm", "duplicate")
		logging.Ctx(ctx).Debug().
			Str("session_id", req.SessionID).
			Int("sequence", req.Sequence).
			Msg("Duplicate chunk confirmation ignored")
	}
	return created, nil
}

// DirectWrite stores and indexes a chunk in one call. It is used for the
// final flush when the page unloads; callers must not assume delivery.
func (s *Service) DirectWrite(ctx context.Context, req *models.DirectWriteRequest) (created bool, err error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		metrics.RecordChunk("beacon", "invalid")
		return false, verr
	}
	if s.cfg.MaxBeaconEvents > 0 && len(req.Events) > s.cfg.MaxBeaconEvents {
		metrics.RecordChunk("beacon", "invalid")
		return false, validation.NewFieldError("events", "max",
			fmt.Sprintf("events must contain at most %d items", s.cfg.MaxBeaconEvents))
	}

	data, err := EncodePayload(req.Events)
	if err != nil {
		return false, err
	}

	key := blobstore.ChunkKey(req.CampaignID, req.SessionID, req.Sequence)
	if err := s.store.Put(ctx, key, data, blobstore.ChunkContentType); err != nil {
		metrics.RecordChunk("beacon", "storage_error")
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", req.SessionID).Msg("Beacon chunk write failed")
		return false, fmt.Errorf("%w: put beacon chunk: %w", models.ErrStorage, err)
	}
	metrics.IngestBytes.Add(float64(len(data)))

	created, err = s.index.InsertChunk(ctx, &models.Chunk{
		SessionID:  req.SessionID,
		Sequence:   req.Sequence,
		BlobKey:    key,
		CapturedAt: time.UnixMilli(req.CapturedAt).UTC(),
		CampaignID: req.CampaignID,
		DeviceID:   req.DeviceID,
		PageURL:    req.PageURL,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		metrics.RecordChunk("beacon", "storage_error")
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", req.SessionID).Msg("Beacon chunk index write failed")
		return false, fmt.Errorf("%w: %w", models.ErrStorage, err)
	}

	if !created {
		// The sequence was already delivered through the ticket path.
		if err := s.store.Delete(ctx, key); err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("blob_key", key).Msg("Failed to remove duplicate beacon blob")
		}
		metrics.RecordChunk("beacon", "duplicate")
		return false, nil
	}
	metrics.RecordChunk("beacon", "created")
	return true, nil
}

// checkKeyOwnership rejects a confirmation for a key that was not issued
// for this campaign, session and sequence.
func checkKeyOwnership(key, campaignID, sessionID string, sequence int) *validation.RequestValidationError {
	want := blobstore.ChunkPrefix(campaignID, sessionID) + fmt.Sprintf("%06d-", sequence)
	if !strings.HasPrefix(key, want) {
		return validation.NewFieldError("blob_key", "ownership",
			"blob_key was not issued for this campaign, session and sequence")
	}
	return nil
}
