// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// sampleManifest is a representative digest-input type using cbor
// struct tags (the convention for types that only feed hashes).
type sampleManifest struct {
	TaskID   string   `cbor:"task_id"`
	GateType string   `cbor:"gate_type"`
	Items    []string `cbor:"items"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleManifest{
		TaskID:   "task-7",
		GateType: "code-review",
		Items:    []string{"diff", "test-report"},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleManifest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.TaskID != original.TaskID || decoded.GateType != original.GateType {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
	if len(decoded.Items) != 2 || decoded.Items[0] != "diff" {
		t.Errorf("items after roundtrip = %v", decoded.Items)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	manifest := sampleManifest{
		TaskID:   "task-7",
		GateType: "backlog-approval",
		Items:    []string{"prd"},
	}

	first, err := Marshal(manifest)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(manifest)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same value marshaled to different bytes")
	}
}

func TestMarshalMapKeysSorted(t *testing.T) {
	// Deterministic encoding sorts map keys, so insertion order must
	// not leak into the bytes.
	a, err := Marshal(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := Marshal(map[string]int{"c": 3, "a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("map insertion order changed encoded bytes")
	}
}

func TestUnmarshalIntoAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]string{"kind": "gate_requested"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if m["kind"] != "gate_requested" {
		t.Fatalf("decoded map = %v", m)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type extended struct {
		TaskID string `cbor:"task_id"`
		Extra  string `cbor:"extra"`
	}
	data, err := Marshal(extended{TaskID: "task-7", Extra: "later-version"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var narrow struct {
		TaskID string `cbor:"task_id"`
	}
	if err := Unmarshal(data, &narrow); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if narrow.TaskID != "task-7" {
		t.Fatalf("TaskID = %q, want task-7", narrow.TaskID)
	}
}
