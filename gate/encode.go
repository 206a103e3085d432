// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Stored field names of the request record. The decision is folded
// into the same record under decision_* fields when Decide commits.
const (
	fieldID          = "id"
	fieldTaskID      = "task_id"
	fieldSessionID   = "session_id"
	fieldGateType    = "gate_type"
	fieldStatus      = "status"
	fieldBundleID    = "bundle_id"
	fieldRequestedBy = "requested_by"
	fieldCreatedAt   = "created_at"
	fieldExpiresAt   = "expires_at"

	fieldDecisionID         = "decision_id"
	fieldDecisionApproved   = "decision_approved"
	fieldDecisionReviewer   = "decision_reviewer"
	fieldDecisionReason     = "decision_reason"
	fieldDecisionConditions = "decision_conditions"
	fieldDecidedAt          = "decided_at"
)

// encodeRequest renders the request as its stored field map. An
// absent expiry is stored as the empty string, never as a sentinel
// timestamp.
func encodeRequest(r *Request) map[string]string {
	fields := map[string]string{
		fieldID:          r.ID,
		fieldTaskID:      r.TaskID,
		fieldSessionID:   r.SessionID,
		fieldGateType:    string(r.Type),
		fieldStatus:      string(r.Status),
		fieldBundleID:    r.BundleID,
		fieldRequestedBy: r.RequestedBy,
		fieldCreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldExpiresAt:   "",
	}
	if r.ExpiresAt != nil {
		fields[fieldExpiresAt] = r.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

// decisionFields renders the fields Decide writes in the same atomic
// step as the status swap.
func decisionFields(d *Decision) (map[string]string, error) {
	conditions, err := json.Marshal(d.Conditions)
	if err != nil {
		return nil, fmt.Errorf("gate: encoding conditions of %s: %w", d.ID, err)
	}
	approved := "false"
	if d.Approved {
		approved = "true"
	}
	return map[string]string{
		fieldDecisionID:         d.ID,
		fieldDecisionApproved:   approved,
		fieldDecisionReviewer:   d.Reviewer,
		fieldDecisionReason:     d.Reason,
		fieldDecisionConditions: string(conditions),
		fieldDecidedAt:          d.DecidedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// decodeRequest rebuilds a request, and its attached decision if one
// committed, from the stored field map.
func decodeRequest(fields map[string]string) (*Request, error) {
	id := fields[fieldID]
	if id == "" {
		return nil, fmt.Errorf("gate: decoding request: missing id field")
	}

	gateType, err := ParseType(fields[fieldGateType])
	if err != nil {
		return nil, fmt.Errorf("gate: decoding request %s: %w", id, err)
	}
	status, err := ParseStatus(fields[fieldStatus])
	if err != nil {
		return nil, fmt.Errorf("gate: decoding request %s: %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("gate: decoding request %s: created_at: %w", id, err)
	}

	request := &Request{
		ID:          id,
		TaskID:      fields[fieldTaskID],
		SessionID:   fields[fieldSessionID],
		Type:        gateType,
		Status:      status,
		BundleID:    fields[fieldBundleID],
		RequestedBy: fields[fieldRequestedBy],
		CreatedAt:   createdAt,
	}

	if raw := fields[fieldExpiresAt]; raw != "" {
		expiresAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("gate: decoding request %s: expires_at: %w", id, err)
		}
		request.ExpiresAt = &expiresAt
	}

	if decisionID := fields[fieldDecisionID]; decisionID != "" {
		decidedAt, err := time.Parse(time.RFC3339Nano, fields[fieldDecidedAt])
		if err != nil {
			return nil, fmt.Errorf("gate: decoding request %s: decided_at: %w", id, err)
		}
		var conditions []string
		if raw := fields[fieldDecisionConditions]; raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
				return nil, fmt.Errorf("gate: decoding request %s: conditions: %w", id, err)
			}
		}
		request.Decision = &Decision{
			ID:         decisionID,
			RequestID:  id,
			Approved:   fields[fieldDecisionApproved] == "true",
			Reviewer:   fields[fieldDecisionReviewer],
			Reason:     fields[fieldDecisionReason],
			DecidedAt:  decidedAt,
			Conditions: conditions,
		}
	}

	return request, nil
}

// expiryScore maps an optional expiry to its pending-index sort
// score. Absence becomes positive infinity here and only here: a
// never-expiring request sorts after every concrete deadline and is
// unreachable by any range query bounded at "now".
func expiryScore(expiresAt *time.Time) float64 {
	if expiresAt == nil {
		return math.Inf(1)
	}
	return timeScore(*expiresAt)
}

// timeScore renders a concrete instant as an index score with
// millisecond precision.
func timeScore(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000.0
}
