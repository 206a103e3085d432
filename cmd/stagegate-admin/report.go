// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"time"

	"github.com/stagegate-io/stagegate/gate"
)

// requestReport is the JSON shape of a gate request in admin output.
type requestReport struct {
	ID          string          `json:"id"`
	TaskID      string          `json:"task_id"`
	SessionID   string          `json:"session_id"`
	GateType    string          `json:"gate_type"`
	Status      string          `json:"status"`
	BundleID    string          `json:"bundle_id"`
	RequestedBy string          `json:"requested_by"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Decision    *decisionReport `json:"decision,omitempty"`
}

type decisionReport struct {
	ID         string    `json:"id"`
	Approved   bool      `json:"approved"`
	Reviewer   string    `json:"reviewer"`
	Reason     string    `json:"reason,omitempty"`
	Conditions []string  `json:"conditions,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

func newRequestReport(request *gate.Request) requestReport {
	report := requestReport{
		ID:          request.ID,
		TaskID:      request.TaskID,
		SessionID:   request.SessionID,
		GateType:    string(request.Type),
		Status:      string(request.Status),
		BundleID:    request.BundleID,
		RequestedBy: request.RequestedBy,
		CreatedAt:   request.CreatedAt,
		ExpiresAt:   request.ExpiresAt,
	}
	if request.Decision != nil {
		report.Decision = &decisionReport{
			ID:         request.Decision.ID,
			Approved:   request.Decision.Approved,
			Reviewer:   request.Decision.Reviewer,
			Reason:     request.Decision.Reason,
			Conditions: request.Decision.Conditions,
			DecidedAt:  request.Decision.DecidedAt,
		}
	}
	return report
}

// formatExpiry renders an expiry for table output: RFC3339 for a
// bounded request, "never" for an unbounded one.
func formatExpiry(expiresAt *time.Time) string {
	if expiresAt == nil {
		return "never"
	}
	return expiresAt.UTC().Format(time.RFC3339)
}
