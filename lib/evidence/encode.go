// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field names of the stored bundle record. The record is a flat
// string map; the item list is a JSON-encoded value inside it.
const (
	fieldID        = "id"
	fieldTaskID    = "task_id"
	fieldGateType  = "gate_type"
	fieldGitRef    = "git_ref"
	fieldSummary   = "summary"
	fieldCreatedAt = "created_at"
	fieldDigest    = "digest"
	fieldItems     = "items"
)

// EncodeBundle renders a bundle as the flat field map the store
// persists. This is the only place bundle fields meet their stored
// names.
func EncodeBundle(b *Bundle) (map[string]string, error) {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return nil, fmt.Errorf("evidence: encoding items of %s: %w", b.ID, err)
	}
	return map[string]string{
		fieldID:        b.ID,
		fieldTaskID:    b.TaskID,
		fieldGateType:  b.GateType,
		fieldGitRef:    b.GitRef,
		fieldSummary:   b.Summary,
		fieldCreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldDigest:    b.Digest,
		fieldItems:     string(items),
	}, nil
}

// DecodeBundle rebuilds a bundle from its stored field map.
func DecodeBundle(fields map[string]string) (*Bundle, error) {
	id := fields[fieldID]
	if id == "" {
		return nil, fmt.Errorf("evidence: decoding bundle: missing id field")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("evidence: decoding bundle %s: created_at: %w", id, err)
	}

	var items []Item
	if raw := fields[fieldItems]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("evidence: decoding bundle %s: items: %w", id, err)
		}
	}

	return &Bundle{
		ID:        id,
		TaskID:    fields[fieldTaskID],
		GateType:  fields[fieldGateType],
		GitRef:    fields[fieldGitRef],
		Items:     items,
		Summary:   fields[fieldSummary],
		CreatedAt: createdAt,
		Digest:    fields[fieldDigest],
	}, nil
}
