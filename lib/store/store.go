// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
)

// ErrNotFound reports that a stream or record does not exist. Read
// sites in the layers above translate it to an empty result; write
// sites that require an existing record surface it as a domain error.
var ErrNotFound = errors.New("store: not found")

// ErrGroupExists reports that CreateGroup found the consumer group
// already present. The substrate treats it as success: concurrent
// service instances bootstrap the same groups at startup and all of
// them must succeed.
var ErrGroupExists = errors.New("store: consumer group already exists")

// Entry is one appended log entry: the server-assigned id and the
// flat field map it was appended with.
type Entry struct {
	ID     string
	Fields map[string]string
}

// GroupInfo describes one consumer group of a log.
type GroupInfo struct {
	Name string
	// Consumers is the number of members registered in the group.
	Consumers int64
	// Pending is the number of delivered-but-unacknowledged entries.
	Pending int64
	// LastDeliveredID is the id of the last entry handed to any
	// member of the group.
	LastDeliveredID string
}

// LogInfo is the introspection shape of one log.
type LogInfo struct {
	Name   string
	Length int64
	First  *Entry
	Last   *Entry
	Groups []GroupInfo
}

// Log is an append-only per-stream log with server-assigned,
// monotonically increasing entry ids.
type Log interface {
	// Append adds one entry and returns the assigned id. A positive
	// maxLen bounds the log with an approximate rolling trim from the
	// oldest end; zero means unbounded.
	Append(ctx context.Context, stream string, fields map[string]string, maxLen int64) (string, error)

	// CreateGroup creates a named consumer group reading from start
	// ("0" delivers the full history). The stream is created together
	// with the group when absent. Returns an error wrapping
	// ErrGroupExists when the group is already present.
	CreateGroup(ctx context.Context, stream, group, start string) error

	// Info returns the log's introspection shape, or an error
	// wrapping ErrNotFound when the stream has never been created.
	Info(ctx context.Context, stream string) (*LogInfo, error)
}

// SortedIndex is a scored member set supporting range queries in
// score order.
type SortedIndex interface {
	// IndexAdd inserts or updates member with the given score.
	IndexAdd(ctx context.Context, key, member string, score float64) error

	// IndexRemove deletes member. Removing an absent member is not
	// an error.
	IndexRemove(ctx context.Context, key, member string) error

	// IndexRangeMax returns members with score <= max in ascending
	// score order. An absent key yields an empty slice.
	IndexRangeMax(ctx context.Context, key string, max float64) ([]string, error)

	// IndexMembers returns all members in ascending score order.
	IndexMembers(ctx context.Context, key string) ([]string, error)
}

// Records is a hash-like per-entity record store keyed by flat string
// fields.
type Records interface {
	// PutRecord writes fields into the record, creating it if absent
	// and overwriting existing fields.
	PutRecord(ctx context.Context, key string, fields map[string]string) error

	// GetRecord returns the record's fields. An absent record yields
	// an empty map, mirroring the backing hash semantics; callers
	// that need a hard existence check test for emptiness.
	GetRecord(ctx context.Context, key string) (map[string]string, error)

	// SwapField atomically sets field to next, and merges the also
	// fields, if and only if the current value of field equals want.
	// Returns whether the swap was applied. An absent record never
	// swaps. This is the primitive that makes state transitions
	// race-free without in-process locking.
	SwapField(ctx context.Context, key, field, want, next string, also map[string]string) (bool, error)
}

// Lists is an ordered list store supporting append and full ranged
// read.
type Lists interface {
	// ListAppend appends value at the tail, creating the list if
	// absent.
	ListAppend(ctx context.Context, key, value string) error

	// ListRange returns all values in append order. An absent key
	// yields an empty slice.
	ListRange(ctx context.Context, key string) ([]string, error)
}

// Store is the full backing-store contract. Implementations must
// provide per-key atomicity for every method; no method may require
// the caller to hold a lock.
type Store interface {
	Log
	SortedIndex
	Records
	Lists
}
