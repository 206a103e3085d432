// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records the review trail of a pipeline: who asked for
// a gate, who decided it, when, and why. Every entry is written twice
// in the same call, to the per-task history list that reviewers and
// audits read back, and to a bounded global stream that external
// compliance consumers tail.
//
// Entries carry a keyed BLAKE3 digest over their canonical encoding.
// The digest makes the trail tamper-evident: a mutated stored entry
// no longer matches its own digest. It does not make the trail
// tamper-proof; an attacker with store access and knowledge of the
// domain key can re-digest. Chained constructions were rejected
// because histories for different tasks append concurrently and a
// single chain head would serialize every gate in the deployment.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stagegate-io/stagegate/lib/clock"
	"github.com/stagegate-io/stagegate/lib/store"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

// DefaultStreamMaxLen bounds the global audit stream. The per-task
// history lists are unbounded; the stream is a firehose for external
// consumers, not the system of record.
const DefaultStreamMaxLen = 100000

// Kind tags what an audit entry records.
type Kind string

const (
	// KindGateRequested records a new gate request entering review.
	KindGateRequested Kind = "gate_requested"

	// KindGateDecision records a human approving or rejecting a
	// request. Expiry is not a decision and writes no entry; the
	// request entry plus the absence of a decision entry is the
	// audit story of an expired gate.
	KindGateDecision Kind = "gate_decision"
)

// Entry is one audit record. GateType stays a plain string here so
// the trail can be decoded years later even if the known gate types
// change.
type Entry struct {
	Kind       Kind   `json:"kind"`
	TaskID     string `json:"task_id"`
	RequestID  string `json:"request_id"`
	DecisionID string `json:"decision_id,omitempty"`
	GateType   string `json:"gate_type"`

	// Actor is who caused the entry: the requester on a
	// gate_requested entry, the reviewer on a gate_decision.
	Actor string `json:"actor"`

	// Outcome is "approved" or "rejected" on decisions, empty on
	// requests.
	Outcome string `json:"outcome,omitempty"`

	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Digest is the hex keyed-BLAKE3 digest over the entry's
	// canonical encoding, excluding this field.
	Digest string `json:"digest"`
}

// Config assembles a Logger. Store and Keys are required.
type Config struct {
	Store store.Store
	Keys  *tenant.Keyspace

	// Clock supplies entry timestamps. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives operational log output. Nil uses
	// slog.Default().
	Logger *slog.Logger

	// StreamMaxLen bounds the global audit stream. Zero uses
	// DefaultStreamMaxLen.
	StreamMaxLen int64
}

// Logger writes and reads the audit trail.
type Logger struct {
	store        store.Store
	keys         *tenant.Keyspace
	clock        clock.Clock
	logger       *slog.Logger
	streamMaxLen int64
}

// New validates the config and returns a Logger.
func New(cfg Config) (*Logger, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("audit: config missing Store")
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("audit: config missing Keys")
	}
	l := &Logger{
		store:        cfg.Store,
		keys:         cfg.Keys,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		streamMaxLen: cfg.StreamMaxLen,
	}
	if l.clock == nil {
		l.clock = clock.Real()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.streamMaxLen <= 0 {
		l.streamMaxLen = DefaultStreamMaxLen
	}
	return l, nil
}

// RequestedParams describes a gate_requested entry.
type RequestedParams struct {
	TaskID    string
	RequestID string
	GateType  string
	// Actor is the requester identity, typically the worker session.
	Actor string
}

// GateRequested records a new gate request in the trail and returns
// the sealed entry.
func (l *Logger) GateRequested(ctx context.Context, tn tenant.Tenant, p RequestedParams) (*Entry, error) {
	if p.TaskID == "" || p.RequestID == "" {
		return nil, fmt.Errorf("audit: gate_requested entry missing task or request id")
	}
	entry := Entry{
		Kind:      KindGateRequested,
		TaskID:    p.TaskID,
		RequestID: p.RequestID,
		GateType:  p.GateType,
		Actor:     p.Actor,
	}
	return l.record(ctx, tn, entry)
}

// DecisionParams describes a gate_decision entry.
type DecisionParams struct {
	TaskID     string
	RequestID  string
	DecisionID string
	GateType   string
	// Actor is the reviewer identity.
	Actor    string
	Approved bool
	Reason   string
}

// GateDecision records an approval or rejection in the trail and
// returns the sealed entry.
func (l *Logger) GateDecision(ctx context.Context, tn tenant.Tenant, p DecisionParams) (*Entry, error) {
	if p.TaskID == "" || p.RequestID == "" || p.DecisionID == "" {
		return nil, fmt.Errorf("audit: gate_decision entry missing task, request, or decision id")
	}
	outcome := "approved"
	if !p.Approved {
		outcome = "rejected"
	}
	entry := Entry{
		Kind:       KindGateDecision,
		TaskID:     p.TaskID,
		RequestID:  p.RequestID,
		DecisionID: p.DecisionID,
		GateType:   p.GateType,
		Actor:      p.Actor,
		Outcome:    outcome,
		Reason:     p.Reason,
	}
	return l.record(ctx, tn, entry)
}

// record timestamps and digests the entry, then performs the dual
// write. The history list write comes first: the list is the system
// of record, the stream is best-effort fanout with a bounded window.
func (l *Logger) record(ctx context.Context, tn tenant.Tenant, entry Entry) (*Entry, error) {
	entry.Timestamp = l.clock.Now().UTC()

	digest, err := digestEntry(&entry)
	if err != nil {
		return nil, fmt.Errorf("audit: digesting entry: %w", err)
	}
	entry.Digest = digest

	line, err := json.Marshal(&entry)
	if err != nil {
		return nil, fmt.Errorf("audit: encoding entry: %w", err)
	}
	historyKey := l.keys.TaskHistory(tn, entry.TaskID)
	if err := l.store.ListAppend(ctx, historyKey, string(line)); err != nil {
		return nil, fmt.Errorf("audit: appending task history for %s: %w", entry.TaskID, err)
	}

	if _, err := l.store.Append(ctx, l.keys.AuditStream(tn), streamFields(&entry), l.streamMaxLen); err != nil {
		return nil, fmt.Errorf("audit: appending audit stream: %w", err)
	}

	l.logger.Debug("audit entry recorded",
		"kind", string(entry.Kind),
		"task", entry.TaskID,
		"request", entry.RequestID,
		"tenant", l.keys.Resolve(tn).String(),
	)
	return &entry, nil
}

// streamFields flattens an entry for the audit stream. Empty optional
// fields are omitted from the wire.
func streamFields(entry *Entry) map[string]string {
	fields := map[string]string{
		"kind":       string(entry.Kind),
		"task_id":    entry.TaskID,
		"request_id": entry.RequestID,
		"gate_type":  entry.GateType,
		"actor":      entry.Actor,
		"timestamp":  entry.Timestamp.Format(time.RFC3339Nano),
		"digest":     entry.Digest,
	}
	if entry.DecisionID != "" {
		fields["decision_id"] = entry.DecisionID
	}
	if entry.Outcome != "" {
		fields["outcome"] = entry.Outcome
	}
	if entry.Reason != "" {
		fields["reason"] = entry.Reason
	}
	return fields
}

// TaskHistory returns every audit entry for a task in append order.
// A task with no history yields an empty slice, not an error.
func (l *Logger) TaskHistory(ctx context.Context, tn tenant.Tenant, taskID string) ([]Entry, error) {
	if taskID == "" {
		return nil, fmt.Errorf("audit: empty task id")
	}
	lines, err := l.store.ListRange(ctx, l.keys.TaskHistory(tn, taskID))
	if err != nil {
		return nil, fmt.Errorf("audit: reading task history for %s: %w", taskID, err)
	}

	entries := make([]Entry, 0, len(lines))
	for i, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("audit: task %s history entry %d: %w", taskID, i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// VerifyResult reports a history verification pass.
type VerifyResult struct {
	// Entries is the full history in append order.
	Entries []Entry

	// Invalid holds the indices into Entries whose stored digest did
	// not match the recomputed one.
	Invalid []int
}

// Tampered reports whether any entry failed verification.
func (r *VerifyResult) Tampered() bool { return len(r.Invalid) > 0 }

// VerifyHistory reads a task's history and recomputes every digest.
func (l *Logger) VerifyHistory(ctx context.Context, tn tenant.Tenant, taskID string) (*VerifyResult, error) {
	entries, err := l.TaskHistory(ctx, tn, taskID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Entries: entries}
	for i := range entries {
		ok, err := VerifyEntry(&entries[i])
		if err != nil {
			return nil, fmt.Errorf("audit: verifying task %s entry %d: %w", taskID, i, err)
		}
		if !ok {
			result.Invalid = append(result.Invalid, i)
		}
	}
	return result, nil
}

// VerifyEntry recomputes an entry's digest and reports whether it
// matches the stored one.
func VerifyEntry(entry *Entry) (bool, error) {
	digest, err := digestEntry(entry)
	if err != nil {
		return false, err
	}
	return digest == entry.Digest, nil
}
