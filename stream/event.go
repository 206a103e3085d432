// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stagegate-io/stagegate/lib/store"
)

// Event types carried on the pipeline stream.
const (
	// EventStreamInitialized is the placeholder entry Ensure appends
	// to create a stream.
	EventStreamInitialized = "stream_initialized"

	// EventGateRequested announces a new pending gate request.
	EventGateRequested = "gate_requested"

	// EventGateApproved announces an approval decision.
	EventGateApproved = "gate_approved"

	// EventGateRejected announces a rejection decision.
	EventGateRejected = "gate_rejected"

	// EventGateExpired announces that the sweep expired a request.
	EventGateExpired = "gate_expired"

	// EventStageStarted announces that a worker picked up a stage.
	EventStageStarted = "stage_started"

	// EventStageCompleted announces stage output ready for the next
	// consumer group.
	EventStageCompleted = "stage_completed"
)

// Wire field names common to stream entries. Producers may add any
// further fields; consumers read them from the raw map.
const (
	fieldEventType = "event_type"
	fieldSessionID = "session_id"
	fieldTimestamp = "timestamp"
	fieldEpicID    = "epic_id"
	fieldTaskID    = "task_id"
	fieldGitRef    = "git_ref"
	fieldArtifacts = "artifacts"
	fieldMode      = "mode"
)

// Event is what a producer publishes: a type, the session it belongs
// to, and any additional flat fields. The service merges in the
// server-assigned timestamp; callers cannot override it.
type Event struct {
	Type      string
	SessionID string
	Fields    map[string]string
}

// StreamEvent is the read-side materialization of one log entry. It
// is built fresh on every read and never stored; Raw preserves every
// field for consumers that need more than the common set.
type StreamEvent struct {
	// ID is the log-assigned entry id, monotonically increasing per
	// stream.
	ID        string
	Type      string
	SessionID string
	EpicID    string
	TaskID    string
	GitRef    string

	// Artifacts is the ordered artifact path list, decoded from the
	// JSON-encoded wire field.
	Artifacts []string

	Mode      string
	Timestamp time.Time
	Raw       map[string]string
}

// ParseEvent materializes a StreamEvent from a raw log entry. The
// timestamp field may be absent (foreign producers); a present but
// malformed one is an error.
func ParseEvent(entry store.Entry) (*StreamEvent, error) {
	event := &StreamEvent{
		ID:        entry.ID,
		Type:      entry.Fields[fieldEventType],
		SessionID: entry.Fields[fieldSessionID],
		EpicID:    entry.Fields[fieldEpicID],
		TaskID:    entry.Fields[fieldTaskID],
		GitRef:    entry.Fields[fieldGitRef],
		Mode:      entry.Fields[fieldMode],
		Raw:       entry.Fields,
	}

	if raw := entry.Fields[fieldTimestamp]; raw != "" {
		timestamp, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("stream: entry %s: timestamp: %w", entry.ID, err)
		}
		event.Timestamp = timestamp
	}

	if raw := entry.Fields[fieldArtifacts]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &event.Artifacts); err != nil {
			return nil, fmt.Errorf("stream: entry %s: artifacts: %w", entry.ID, err)
		}
	}

	return event, nil
}

// EncodeArtifacts renders an ordered artifact path list as its wire
// value for inclusion in Event.Fields.
func EncodeArtifacts(paths []string) (string, error) {
	encoded, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("stream: encoding artifacts: %w", err)
	}
	return string(encoded), nil
}
