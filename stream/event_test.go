// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"testing"
	"time"

	"github.com/stagegate-io/stagegate/lib/store"
)

func TestParseEventFullEntry(t *testing.T) {
	entry := store.Entry{
		ID: "1700000000000-0",
		Fields: map[string]string{
			"event_type": EventStageCompleted,
			"session_id": "session-3",
			"timestamp":  "2026-03-14T09:30:00.5Z",
			"epic_id":    "epic-1",
			"task_id":    "task-9",
			"git_ref":    "feature/task-9",
			"artifacts":  `["docs/prd.md","docs/epics.md"]`,
			"mode":       "standard",
			"extra":      "kept",
		},
	}

	event, err := ParseEvent(entry)
	if err != nil {
		t.Fatal(err)
	}
	if event.ID != "1700000000000-0" {
		t.Errorf("ID = %q", event.ID)
	}
	if event.Type != EventStageCompleted {
		t.Errorf("Type = %q, want %q", event.Type, EventStageCompleted)
	}
	if event.SessionID != "session-3" || event.EpicID != "epic-1" || event.TaskID != "task-9" {
		t.Errorf("identity fields = %q/%q/%q", event.SessionID, event.EpicID, event.TaskID)
	}
	if event.GitRef != "feature/task-9" || event.Mode != "standard" {
		t.Errorf("git_ref/mode = %q/%q", event.GitRef, event.Mode)
	}
	want := time.Date(2026, 3, 14, 9, 30, 0, 500000000, time.UTC)
	if !event.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", event.Timestamp, want)
	}
	if len(event.Artifacts) != 2 || event.Artifacts[0] != "docs/prd.md" || event.Artifacts[1] != "docs/epics.md" {
		t.Errorf("Artifacts = %v", event.Artifacts)
	}
	if event.Raw["extra"] != "kept" {
		t.Error("Raw should preserve unknown fields")
	}
}

func TestParseEventMissingTimestamp(t *testing.T) {
	event, err := ParseEvent(store.Entry{
		ID:     "1-0",
		Fields: map[string]string{"event_type": EventStageStarted},
	})
	if err != nil {
		t.Fatalf("missing timestamp should parse: %v", err)
	}
	if !event.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", event.Timestamp)
	}
}

func TestParseEventMalformed(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
	}{
		{"bad timestamp", map[string]string{"event_type": "x", "timestamp": "yesterday"}},
		{"bad artifacts", map[string]string{"event_type": "x", "artifacts": "not json"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEvent(store.Entry{ID: "1-0", Fields: tc.fields}); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestEncodeArtifactsRoundTrip(t *testing.T) {
	paths := []string{"src/api/handler.py", "tests/test_handler.py"}
	encoded, err := EncodeArtifacts(paths)
	if err != nil {
		t.Fatal(err)
	}

	event, err := ParseEvent(store.Entry{
		ID:     "1-0",
		Fields: map[string]string{"event_type": "x", "artifacts": encoded},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(event.Artifacts) != 2 || event.Artifacts[0] != paths[0] || event.Artifacts[1] != paths[1] {
		t.Errorf("round trip = %v, want %v", event.Artifacts, paths)
	}
}
