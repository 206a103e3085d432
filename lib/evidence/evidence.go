// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package evidence models the content-addressed bundles a human is
// asked to approve at a gate: an ordered set of artifact references,
// each pinned by a keyed BLAKE3 digest of its content, plus a
// human-readable summary. Item order is review order and is part of
// the bundle's identity.
//
// Bundles are immutable once sealed. The bundle digest is computed
// over a canonical CBOR manifest, so any later mutation of a stored
// bundle is detectable by recomputing it.
package evidence

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stagegate-io/stagegate/lib/codec"
)

// Item is one artifact reference inside a bundle: what kind of thing
// it is, where it lives, and the digest of its content at sealing
// time.
type Item struct {
	// Type tags the artifact kind, e.g. "document", "diff",
	// "test-report".
	Type string `json:"type"`

	// Path locates the artifact in whatever storage the pipeline
	// uses. The coordinator never dereferences it.
	Path string `json:"path"`

	// Description is the one-line human label shown at review.
	Description string `json:"description"`

	// ContentHash is the hex item-domain BLAKE3 digest of the
	// artifact content.
	ContentHash string `json:"content_hash"`

	// Meta carries open key/value annotations.
	Meta map[string]string `json:"meta,omitempty"`
}

// Bundle is the sealed, content-addressed evidence set attached to a
// gate request. Treat as read-only after Seal.
type Bundle struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	GateType  string    `json:"gate_type"`
	GitRef    string    `json:"git_ref,omitempty"`
	Items     []Item    `json:"items"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`

	// Digest is the hex bundle-domain BLAKE3 digest of the canonical
	// manifest. Excludes ID and CreatedAt: identical content shares
	// the digest no matter when it was sealed.
	Digest string `json:"digest"`
}

// manifest is the digest input. CBOR with deterministic encoding so
// the digest is reproducible.
type manifest struct {
	TaskID   string         `cbor:"task_id"`
	GateType string         `cbor:"gate_type"`
	GitRef   string         `cbor:"git_ref"`
	Summary  string         `cbor:"summary"`
	Items    []manifestItem `cbor:"items"`
}

type manifestItem struct {
	Type string `cbor:"type"`
	Path string `cbor:"path"`
	Hash string `cbor:"hash"`
}

// Builder accumulates items in review order and seals them into a
// Bundle. Not safe for concurrent use.
type Builder struct {
	items []Item
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// AddItem appends an item whose content bytes are in hand, computing
// its content hash.
func (b *Builder) AddItem(itemType, path, description string, content []byte, meta map[string]string) {
	b.items = append(b.items, Item{
		Type:        itemType,
		Path:        path,
		Description: description,
		ContentHash: FormatHash(HashContent(content)),
		Meta:        copyMeta(meta),
	})
}

// AddHashedItem appends an item whose content was hashed elsewhere,
// for artifacts too large to pull through the coordinator. The digest
// must be well-formed hex.
func (b *Builder) AddHashedItem(itemType, path, description, contentHash string, meta map[string]string) error {
	if _, err := ParseHash(contentHash); err != nil {
		return fmt.Errorf("evidence: item %q: %w", path, err)
	}
	b.items = append(b.items, Item{
		Type:        itemType,
		Path:        path,
		Description: description,
		ContentHash: contentHash,
		Meta:        copyMeta(meta),
	})
	return nil
}

// Len returns the number of accumulated items.
func (b *Builder) Len() int { return len(b.items) }

// SealParams identifies what the accumulated evidence is for.
type SealParams struct {
	TaskID   string
	GateType string
	GitRef   string
	Summary  string
	// Now becomes the bundle's creation timestamp. Callers pass
	// their clock's reading so tests stay deterministic.
	Now time.Time
}

// Seal assigns a bundle id, computes the manifest digest, and returns
// the immutable Bundle. The builder can keep accumulating afterwards;
// the sealed bundle holds its own copy of the items.
func (b *Builder) Seal(params SealParams) (*Bundle, error) {
	if params.TaskID == "" {
		return nil, fmt.Errorf("evidence: seal: missing task id")
	}
	if params.GateType == "" {
		return nil, fmt.Errorf("evidence: seal: missing gate type")
	}

	items := make([]Item, len(b.items))
	copy(items, b.items)

	bundle := &Bundle{
		ID:        "bundle-" + uuid.NewString(),
		TaskID:    params.TaskID,
		GateType:  params.GateType,
		GitRef:    params.GitRef,
		Items:     items,
		Summary:   params.Summary,
		CreatedAt: params.Now.UTC(),
	}
	digest, err := bundle.computeDigest()
	if err != nil {
		return nil, err
	}
	bundle.Digest = digest
	return bundle, nil
}

func (b *Bundle) computeDigest() (string, error) {
	m := manifest{
		TaskID:   b.TaskID,
		GateType: b.GateType,
		GitRef:   b.GitRef,
		Summary:  b.Summary,
		Items:    make([]manifestItem, len(b.Items)),
	}
	for i, item := range b.Items {
		m.Items[i] = manifestItem{Type: item.Type, Path: item.Path, Hash: item.ContentHash}
	}
	encoded, err := codec.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("evidence: encoding manifest: %w", err)
	}
	return FormatHash(hashManifest(encoded)), nil
}

// Validate checks the bundle is structurally fit to attach to a gate
// request: at least one item, every item typed, located, and pinned
// by a well-formed digest. Gate-type-specific rules live with the
// dispatcher.
func (b *Bundle) Validate() error {
	if len(b.Items) == 0 {
		return fmt.Errorf("evidence: bundle %s: no items", b.ID)
	}
	for i, item := range b.Items {
		if item.Type == "" {
			return fmt.Errorf("evidence: bundle %s: items[%d]: missing type", b.ID, i)
		}
		if item.Path == "" {
			return fmt.Errorf("evidence: bundle %s: items[%d]: missing path", b.ID, i)
		}
		if _, err := ParseHash(item.ContentHash); err != nil {
			return fmt.Errorf("evidence: bundle %s: items[%d]: %w", b.ID, i, err)
		}
	}
	return nil
}

// VerifyDigest recomputes the manifest digest and reports whether it
// matches the stored one. A mismatch means the stored bundle was
// altered after sealing.
func (b *Bundle) VerifyDigest() (bool, error) {
	digest, err := b.computeDigest()
	if err != nil {
		return false, err
	}
	return digest == b.Digest, nil
}

func copyMeta(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
