// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package store defines the backing-store contract the coordinator
// runs against: an append-only log with consumer groups and bounded
// trim, a sorted index for expiry range queries, hash-like entity
// records with an atomic field compare-and-swap, and ordered lists.
//
// The contract is shaped after the Redis primitives it is normally
// served by (streams, ZSET, hash, list), but nothing above this
// package knows which implementation it is talking to. Production
// uses redisstore; tests use memstore. Keys arrive fully qualified
// from lib/tenant; the store itself is tenant-agnostic.
package store
