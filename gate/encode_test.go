// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"math"
	"testing"
	"time"
)

func TestRequestRecordRoundTrip(t *testing.T) {
	expiresAt := time.Date(2026, 6, 2, 10, 0, 0, 123456789, time.UTC)
	original := &Request{
		ID:          "gate-1",
		TaskID:      "task-1",
		SessionID:   "session-1",
		Type:        CodeReview,
		Status:      StatusPending,
		BundleID:    "bundle-1",
		RequestedBy: "session-1",
		CreatedAt:   time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		ExpiresAt:   &expiresAt,
	}

	decoded, err := decodeRequest(encodeRequest(original))
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ID != original.ID || decoded.Type != original.Type || decoded.Status != original.Status {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.ExpiresAt == nil || !decoded.ExpiresAt.Equal(expiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", decoded.ExpiresAt, expiresAt)
	}
	if decoded.Decision != nil {
		t.Error("pending request decoded with a decision")
	}

	// Absent expiry stays absent through the round trip, never a
	// sentinel time.
	original.ExpiresAt = nil
	decoded, err = decodeRequest(encodeRequest(original))
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil", decoded.ExpiresAt)
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	base := func() map[string]string {
		return encodeRequest(&Request{
			ID:        "gate-1",
			TaskID:    "task-1",
			SessionID: "session-1",
			Type:      CodeReview,
			Status:    StatusPending,
			CreatedAt: time.Unix(1700000000, 0),
		})
	}

	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing id", func(f map[string]string) { delete(f, "id") }},
		{"unknown type", func(f map[string]string) { f["gate_type"] = "handshake" }},
		{"unknown status", func(f map[string]string) { f["status"] = "MAYBE" }},
		{"bad created_at", func(f map[string]string) { f["created_at"] = "then" }},
		{"bad expires_at", func(f map[string]string) { f["expires_at"] = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := base()
			tt.mutate(fields)
			if _, err := decodeRequest(fields); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestExpiryScore(t *testing.T) {
	if score := expiryScore(nil); !math.IsInf(score, 1) {
		t.Errorf("expiryScore(nil) = %v, want +Inf", score)
	}

	at := time.Unix(1700000000, 500_000_000).UTC()
	if score := expiryScore(&at); score != 1700000000.5 {
		t.Errorf("expiryScore = %v, want 1700000000.5", score)
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("PENDING must not be terminal")
	}
	for _, status := range []Status{StatusApproved, StatusRejected, StatusExpired} {
		if !status.Terminal() {
			t.Errorf("%s must be terminal", status)
		}
	}
}

func TestParseTypeAndStatus(t *testing.T) {
	for _, gateType := range Types() {
		parsed, err := ParseType(string(gateType))
		if err != nil || parsed != gateType {
			t.Errorf("ParseType(%q) = %q, %v", gateType, parsed, err)
		}
	}
	if _, err := ParseType("rubber-stamp"); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Error("statuses are uppercase on the wire; lowercase must fail")
	}
}
