// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package memstore is an in-memory implementation of the store
// contract for tests: mutex-guarded maps with the same observable
// semantics as the Redis implementation, including monotonically
// increasing entry ids, bounded trim, the group-exists sentinel, and
// an atomic field compare-and-swap.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stagegate-io/stagegate/lib/clock"
	"github.com/stagegate-io/stagegate/lib/store"
)

var _ store.Store = (*Memory)(nil)

// Memory implements store.Store entirely in process memory. Safe for
// concurrent use. The zero value is not usable; construct with New.
type Memory struct {
	mu     sync.Mutex
	clock  clock.Clock
	logs   map[string]*logState
	zsets  map[string]map[string]float64
	hashes map[string]map[string]string
	lists  map[string][]string

	// lastMS and lastSeq implement the id discipline of the backing
	// log: ids are "<unix-ms>-<seq>", and appends within one
	// millisecond (or with a non-advancing test clock) increment seq.
	lastMS  int64
	lastSeq int64
}

type logState struct {
	entries []store.Entry
	groups  map[string]*groupState
}

type groupState struct {
	lastDeliveredID string
	consumers       int64
	pending         int64
}

// New returns an empty Memory. A nil clk uses the real clock; tests
// pass a clock.Fake so entry ids and timestamps are deterministic.
func New(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real()
	}
	return &Memory{
		clock:  clk,
		logs:   make(map[string]*logState),
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
	}
}

func (m *Memory) nextID() string {
	ms := m.clock.Now().UnixMilli()
	if ms <= m.lastMS {
		m.lastSeq++
	} else {
		m.lastMS = ms
		m.lastSeq = 0
	}
	return fmt.Sprintf("%d-%d", m.lastMS, m.lastSeq)
}

func (m *Memory) log(stream string) *logState {
	l, ok := m.logs[stream]
	if !ok {
		l = &logState{groups: make(map[string]*groupState)}
		m.logs[stream] = l
	}
	return l
}

// Append implements store.Log.
func (m *Memory) Append(ctx context.Context, stream string, fields map[string]string, maxLen int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.log(stream)
	entry := store.Entry{ID: m.nextID(), Fields: copyFields(fields)}
	l.entries = append(l.entries, entry)
	if maxLen > 0 && int64(len(l.entries)) > maxLen {
		drop := int64(len(l.entries)) - maxLen
		l.entries = append([]store.Entry(nil), l.entries[drop:]...)
	}
	return entry.ID, nil
}

// CreateGroup implements store.Log. The stream is created together
// with the group when absent, matching MKSTREAM semantics.
func (m *Memory) CreateGroup(ctx context.Context, stream, group, start string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.log(stream)
	if _, ok := l.groups[group]; ok {
		return fmt.Errorf("memstore: group %q on stream %q: %w", group, stream, store.ErrGroupExists)
	}
	last := start
	if start == "$" {
		last = "0-0"
		if n := len(l.entries); n > 0 {
			last = l.entries[n-1].ID
		}
	}
	l.groups[group] = &groupState{lastDeliveredID: last}
	return nil
}

// Info implements store.Log.
func (m *Memory) Info(ctx context.Context, stream string) (*store.LogInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.logs[stream]
	if !ok {
		return nil, fmt.Errorf("memstore: stream %q: %w", stream, store.ErrNotFound)
	}
	info := &store.LogInfo{Name: stream, Length: int64(len(l.entries))}
	if n := len(l.entries); n > 0 {
		first := copyEntry(l.entries[0])
		last := copyEntry(l.entries[n-1])
		info.First = &first
		info.Last = &last
	}
	names := make([]string, 0, len(l.groups))
	for name := range l.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g := l.groups[name]
		info.Groups = append(info.Groups, store.GroupInfo{
			Name:            name,
			Consumers:       g.consumers,
			Pending:         g.pending,
			LastDeliveredID: g.lastDeliveredID,
		})
	}
	return info, nil
}

// IndexAdd implements store.SortedIndex.
func (m *Memory) IndexAdd(ctx context.Context, key, member string, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	z, ok := m.zsets[key]
	if !ok {
		z = make(map[string]float64)
		m.zsets[key] = z
	}
	z[member] = score
	return nil
}

// IndexRemove implements store.SortedIndex.
func (m *Memory) IndexRemove(ctx context.Context, key, member string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.zsets[key], member)
	return nil
}

// IndexRangeMax implements store.SortedIndex.
func (m *Memory) IndexRangeMax(ctx context.Context, key string, max float64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeLocked(key, func(score float64) bool { return score <= max }), nil
}

// IndexMembers implements store.SortedIndex.
func (m *Memory) IndexMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeLocked(key, func(float64) bool { return true }), nil
}

type scoredMember struct {
	member string
	score  float64
}

func (m *Memory) rangeLocked(key string, keep func(float64) bool) []string {
	var scored []scoredMember
	for member, score := range m.zsets[key] {
		if keep(score) {
			scored = append(scored, scoredMember{member, score})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score < scored[j].score
		}
		return scored[i].member < scored[j].member
	})
	members := make([]string, len(scored))
	for i, s := range scored {
		members[i] = s.member
	}
	return members
}

// PutRecord implements store.Records.
func (m *Memory) PutRecord(ctx context.Context, key string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// GetRecord implements store.Records.
func (m *Memory) GetRecord(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyFields(m.hashes[key]), nil
}

// SwapField implements store.Records.
func (m *Memory) SwapField(ctx context.Context, key, field, want, next string, also map[string]string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.hashes[key]
	if !ok {
		return false, nil
	}
	if h[field] != want {
		return false, nil
	}
	h[field] = next
	for k, v := range also {
		h[k] = v
	}
	return true, nil
}

// ListAppend implements store.Lists.
func (m *Memory) ListAppend(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], value)
	return nil
}

// ListRange implements store.Lists.
func (m *Memory) ListRange(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lists[key]...), nil
}

// Entries returns a copy of a stream's entries for test assertions.
// Not part of the store contract.
func (m *Memory) Entries(stream string) []store.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.logs[stream]
	if !ok {
		return nil
	}
	entries := make([]store.Entry, len(l.entries))
	for i, e := range l.entries {
		entries[i] = copyEntry(e)
	}
	return entries
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func copyEntry(e store.Entry) store.Entry {
	return store.Entry{ID: e.ID, Fields: copyFields(e.Fields)}
}
