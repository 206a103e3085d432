// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"strings"
	"testing"
	"time"
)

var sealTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sealedBundle(t *testing.T) *Bundle {
	t.Helper()
	builder := NewBuilder()
	builder.AddItem("document", "artifacts/prd.md", "product requirements", []byte("prd body"), nil)
	builder.AddItem("diff", "artifacts/change.diff", "proposed change", []byte("diff body"), map[string]string{"lines": "40"})
	bundle, err := builder.Seal(SealParams{
		TaskID:   "task-7",
		GateType: "code-review",
		GitRef:   "refs/heads/feature",
		Summary:  "review the proposed change",
		Now:      sealTime,
	})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return bundle
}

func TestSealPreservesItemOrder(t *testing.T) {
	bundle := sealedBundle(t)
	if len(bundle.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(bundle.Items))
	}
	if bundle.Items[0].Type != "document" || bundle.Items[1].Type != "diff" {
		t.Fatalf("item order = %s, %s; want document, diff", bundle.Items[0].Type, bundle.Items[1].Type)
	}
}

func TestSealAssignsIDAndDigest(t *testing.T) {
	bundle := sealedBundle(t)
	if !strings.HasPrefix(bundle.ID, "bundle-") {
		t.Fatalf("bundle id %q lacks bundle- prefix", bundle.ID)
	}
	if len(bundle.Digest) != 64 {
		t.Fatalf("digest length = %d, want 64 hex characters", len(bundle.Digest))
	}
	if !bundle.CreatedAt.Equal(sealTime) {
		t.Fatalf("created at = %v, want %v", bundle.CreatedAt, sealTime)
	}
}

func TestDigestIsContentAddressed(t *testing.T) {
	a := sealedBundle(t)
	b := sealedBundle(t)
	if a.ID == b.ID {
		t.Fatal("two seals share a bundle id")
	}
	if a.Digest != b.Digest {
		t.Fatal("identical content produced different digests")
	}
}

func TestDigestDependsOnItemOrder(t *testing.T) {
	first := NewBuilder()
	first.AddItem("document", "a", "", []byte("one"), nil)
	first.AddItem("diff", "b", "", []byte("two"), nil)

	second := NewBuilder()
	second.AddItem("diff", "b", "", []byte("two"), nil)
	second.AddItem("document", "a", "", []byte("one"), nil)

	params := SealParams{TaskID: "task-7", GateType: "code-review", Now: sealTime}
	a, err := first.Seal(params)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := second.Seal(params)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if a.Digest == b.Digest {
		t.Fatal("reordered items produced the same digest; order is review order and must be pinned")
	}
}

func TestItemAndContentHashesDiffer(t *testing.T) {
	// Same bytes, different domains: an item hash can never collide
	// with a bundle digest.
	content := []byte("payload")
	item := FormatHash(HashContent(content))
	bundle := FormatHash(hashManifest(content))
	if item == bundle {
		t.Fatal("item and bundle domains produced the same digest")
	}
}

func TestAddHashedItemRejectsMalformedDigest(t *testing.T) {
	builder := NewBuilder()
	if err := builder.AddHashedItem("archive", "big.tar", "", "not-hex", nil); err == nil {
		t.Fatal("malformed digest accepted")
	}
	if err := builder.AddHashedItem("archive", "big.tar", "", strings.Repeat("ab", 16), nil); err == nil {
		t.Fatal("short digest accepted")
	}
	ok := FormatHash(HashContent([]byte("x")))
	if err := builder.AddHashedItem("archive", "big.tar", "", ok, nil); err != nil {
		t.Fatalf("well-formed digest rejected: %v", err)
	}
}

func TestSealRequiresTaskAndGateType(t *testing.T) {
	builder := NewBuilder()
	builder.AddItem("document", "a", "", []byte("x"), nil)
	if _, err := builder.Seal(SealParams{GateType: "code-review", Now: sealTime}); err == nil {
		t.Fatal("Seal without task id succeeded")
	}
	if _, err := builder.Seal(SealParams{TaskID: "task-7", Now: sealTime}); err == nil {
		t.Fatal("Seal without gate type succeeded")
	}
}

func TestValidateRejectsEmptyAndMalformedBundles(t *testing.T) {
	empty := &Bundle{ID: "bundle-x"}
	if err := empty.Validate(); err == nil {
		t.Fatal("empty bundle validated")
	}

	bad := &Bundle{ID: "bundle-x", Items: []Item{{Type: "document", Path: "a", ContentHash: "zz"}}}
	if err := bad.Validate(); err == nil {
		t.Fatal("bundle with malformed item hash validated")
	}

	missing := &Bundle{ID: "bundle-x", Items: []Item{{Type: "", Path: "a", ContentHash: FormatHash(HashContent([]byte("x")))}}}
	if err := missing.Validate(); err == nil {
		t.Fatal("bundle with untyped item validated")
	}

	if err := sealedBundle(t).Validate(); err != nil {
		t.Fatalf("sealed bundle failed validation: %v", err)
	}
}

func TestVerifyDigestDetectsMutation(t *testing.T) {
	bundle := sealedBundle(t)

	ok, err := bundle.VerifyDigest()
	if err != nil {
		t.Fatalf("VerifyDigest: %v", err)
	}
	if !ok {
		t.Fatal("pristine bundle failed digest verification")
	}

	bundle.Summary = "tampered"
	ok, err = bundle.VerifyDigest()
	if err != nil {
		t.Fatalf("VerifyDigest: %v", err)
	}
	if ok {
		t.Fatal("tampered bundle passed digest verification")
	}
}

func TestEncodeDecodeBundle(t *testing.T) {
	bundle := sealedBundle(t)

	fields, err := EncodeBundle(bundle)
	if err != nil {
		t.Fatalf("EncodeBundle: %v", err)
	}
	decoded, err := DecodeBundle(fields)
	if err != nil {
		t.Fatalf("DecodeBundle: %v", err)
	}

	if decoded.ID != bundle.ID || decoded.Digest != bundle.Digest {
		t.Fatalf("decoded identity mismatch: %+v", decoded)
	}
	if !decoded.CreatedAt.Equal(bundle.CreatedAt) {
		t.Fatalf("decoded created at = %v, want %v", decoded.CreatedAt, bundle.CreatedAt)
	}
	if len(decoded.Items) != 2 || decoded.Items[1].Meta["lines"] != "40" {
		t.Fatalf("decoded items = %+v", decoded.Items)
	}

	ok, err := decoded.VerifyDigest()
	if err != nil || !ok {
		t.Fatalf("decoded bundle failed digest verification: ok=%v err=%v", ok, err)
	}
}

func TestDecodeBundleRejectsMissingID(t *testing.T) {
	if _, err := DecodeBundle(map[string]string{"task_id": "task-7"}); err == nil {
		t.Fatal("DecodeBundle without id succeeded")
	}
}
