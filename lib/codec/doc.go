// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration.
//
// Two serialization formats with a clear boundary:
//
//   - JSON for stored wire values: the flat field maps persisted for
//     requests and bundles carry JSON-encoded lists (artifacts,
//     conditions, evidence items), and the per-task audit log is a
//     list of JSON documents.
//   - CBOR for digest input: evidence manifests and audit entries are
//     encoded with Core Deterministic Encoding (RFC 8949 §4.2) before
//     hashing, so the same logical content always digests to the same
//     bytes regardless of field order or encoder version.
//
// This package holds the shared encoding and decoding modes so every
// digest site encodes identically:
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// The `cbor` struct tag marks digest-input types; the `json` tag
// marks stored wire types. fxamacker/cbor reads `json` tags as a
// fallback, so a type that crosses both boundaries carries only the
// `json` tag.
package codec
