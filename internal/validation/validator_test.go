// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/replayline/internal/models"
)

const validKey = "chunks/spring/sess_01/000003-0b1c2d3e-4f50-6172-8394-a5b6c7d8e9f0.json.gz"

func validConfirm() models.ConfirmRequest {
	return models.ConfirmRequest{
		CampaignID: "spring",
		SessionID:  "sess_01",
		Sequence:   3,
		BlobKey:    validKey,
		CapturedAt: 1700000000000,
	}
}

func TestValidateStruct_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.ConfirmRequest)
		wantField string
	}{
		{"valid", func(*models.ConfirmRequest) {}, ""},
		{"missing session", func(r *models.ConfirmRequest) { r.SessionID = "" }, "session_id"},
		{"session with slash", func(r *models.ConfirmRequest) { r.SessionID = "a/b" }, "session_id"},
		{"session too long", func(r *models.ConfirmRequest) { r.SessionID = strings.Repeat("a", 129) }, "session_id"},
		{"session at limit", func(r *models.ConfirmRequest) { r.SessionID = strings.Repeat("a", 128) }, ""},
		{"negative sequence", func(r *models.ConfirmRequest) { r.Sequence = -1 }, "sequence"},
		{"bad blob key", func(r *models.ConfirmRequest) { r.BlobKey = "../etc/passwd" }, "blob_key"},
		{"missing captured_at", func(r *models.ConfirmRequest) { r.CapturedAt = 0 }, "captured_at"},
		{"bad campaign", func(r *models.ConfirmRequest) { r.CampaignID = "spring launch" }, "campaign_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validConfirm()
			tt.mutate(&req)
			verr := ValidateStruct(&req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() = nil, want error on %s", tt.wantField)
			}
			if got := verr.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("Field() = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestRequestValidationError_WrapsSentinel(t *testing.T) {
	req := models.CompletionRequest{CampaignID: "c1", Status: "abandoned"}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error")
	}

	var err error = verr
	if !errors.Is(err, models.ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = false")
	}
	if !strings.Contains(verr.Error(), "status must be one of") {
		t.Errorf("Error() = %q", verr.Error())
	}
	if verr.Details()["field"] != "status" {
		t.Errorf("Details() = %v", verr.Details())
	}
}

func TestValidateStruct_DirectWriteNeedsEvents(t *testing.T) {
	req := models.DirectWriteRequest{CampaignID: "c1", SessionID: "s1", CapturedAt: 1}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error for empty events")
	}
	if got := verr.Errors()[0].Field(); got != "events" {
		t.Errorf("Field() = %q, want events", got)
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	verr := ValidateStruct(&models.TicketRequest{})
	if verr == nil {
		t.Fatal("expected validation errors")
	}
	if len(verr.Errors()) < 3 {
		t.Errorf("len(Errors()) = %d, want >= 3", len(verr.Errors()))
	}
	if _, ok := verr.Details()["fields"]; !ok {
		t.Errorf("Details() missing fields: %v", verr.Details())
	}
}

func TestIsSessionID(t *testing.T) {
	tests := map[string]bool{
		"abc-DEF_123": true,
		"":            false,
		"has space":   false,
		"dot.dot":     false,
	}
	for in, want := range tests {
		if got := IsSessionID(in); got != want {
			t.Errorf("IsSessionID(%q) = %v, want %v", in, got, want)
		}
	}
}
