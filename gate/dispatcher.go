// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stagegate-io/stagegate/audit"
	"github.com/stagegate-io/stagegate/lib/clock"
	"github.com/stagegate-io/stagegate/lib/evidence"
	"github.com/stagegate-io/stagegate/lib/store"
	"github.com/stagegate-io/stagegate/lib/tenant"
	"github.com/stagegate-io/stagegate/stream"
)

// DefaultStreamName is the event stream gate lifecycle events publish
// to when the config does not name one.
const DefaultStreamName = "pipeline"

// Wire field names of published gate events. Distinct from the stored
// record fields in encode.go: events describe the transition, records
// hold the state.
const (
	eventFieldRequestID   = "request_id"
	eventFieldGateType    = "gate_type"
	eventFieldRequestedBy = "requested_by"
	eventFieldBundleID    = "evidence_bundle_id"
	eventFieldDecisionID  = "decision_id"
	eventFieldReviewer    = "reviewer"
	eventFieldReason      = "reason"
	eventFieldConditions  = "conditions"
)

// Config assembles a Dispatcher. Store, Keys, Stream, and Audit are
// required.
type Config struct {
	Store  store.Store
	Keys   *tenant.Keyspace
	Stream *stream.Service
	Audit  *audit.Logger

	// Clock supplies request and decision timestamps. Nil uses the
	// real clock.
	Clock clock.Clock

	// Logger receives operational log output. Nil uses
	// slog.Default().
	Logger *slog.Logger

	// StreamName is the event stream lifecycle events publish to.
	// Empty uses DefaultStreamName.
	StreamName string
}

// Dispatcher owns the gate request lifecycle: creation with evidence,
// the single decision, listing, and the expiry sweep. All writes go
// through the store's atomic field swap, so two dispatchers against
// the same store agree on every outcome.
type Dispatcher struct {
	store      store.Store
	keys       *tenant.Keyspace
	stream     *stream.Service
	audit      *audit.Logger
	clock      clock.Clock
	logger     *slog.Logger
	streamName string
}

// New validates the config and returns a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("gate: config missing Store")
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("gate: config missing Keys")
	}
	if cfg.Stream == nil {
		return nil, fmt.Errorf("gate: config missing Stream")
	}
	if cfg.Audit == nil {
		return nil, fmt.Errorf("gate: config missing Audit")
	}
	d := &Dispatcher{
		store:      cfg.Store,
		keys:       cfg.Keys,
		stream:     cfg.Stream,
		audit:      cfg.Audit,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		streamName: cfg.StreamName,
	}
	if d.clock == nil {
		d.clock = clock.Real()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.streamName == "" {
		d.streamName = DefaultStreamName
	}
	return d, nil
}

// requiresGitRef reports whether the gate type reviews a concrete
// revision. Code and validation gates pin the exact commit the
// reviewer looked at; planning gates review documents.
func requiresGitRef(t Type) bool {
	return t == CodeReview || t == ValidationSignoff
}

// RequestParams describes a new gate request.
type RequestParams struct {
	TaskID    string
	SessionID string
	Type      Type

	// Bundle is the sealed evidence the reviewer will see. Its task
	// and gate type must match the request.
	Bundle *evidence.Bundle

	// RequestedBy identifies the requester, typically the worker
	// session id or service name.
	RequestedBy string

	// TTL bounds the pending window from the moment of request. Nil
	// never expires. Zero and negative are legal: the request is
	// born expired and the next sweep collects it.
	TTL *time.Duration
}

// Request validates the evidence bundle against the gate type,
// persists bundle and request, and announces the request for review.
// The new request starts pending; it leaves that status exactly once,
// through Decide or the expiry sweep.
func (d *Dispatcher) Request(ctx context.Context, tn tenant.Tenant, params RequestParams) (*Request, error) {
	if params.TaskID == "" {
		return nil, fmt.Errorf("gate: request missing task id")
	}
	if params.SessionID == "" {
		return nil, fmt.Errorf("gate: request missing session id")
	}
	if params.RequestedBy == "" {
		return nil, fmt.Errorf("gate: request missing requester")
	}
	if _, err := ParseType(string(params.Type)); err != nil {
		return nil, err
	}
	bundle := params.Bundle
	if bundle == nil {
		return nil, fmt.Errorf("gate: request for task %s has no evidence bundle", params.TaskID)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	if bundle.TaskID != params.TaskID {
		return nil, fmt.Errorf("gate: bundle %s belongs to task %s, not %s", bundle.ID, bundle.TaskID, params.TaskID)
	}
	if bundle.GateType != string(params.Type) {
		return nil, fmt.Errorf("gate: bundle %s was sealed for %s, not %s", bundle.ID, bundle.GateType, params.Type)
	}
	if requiresGitRef(params.Type) && bundle.GitRef == "" {
		return nil, fmt.Errorf("gate: %s requires a git ref pinning the reviewed revision", params.Type)
	}

	now := d.clock.Now().UTC()
	request := &Request{
		ID:          "gate-" + uuid.New().String(),
		TaskID:      params.TaskID,
		SessionID:   params.SessionID,
		Type:        params.Type,
		Status:      StatusPending,
		BundleID:    bundle.ID,
		RequestedBy: params.RequestedBy,
		CreatedAt:   now,
	}
	if params.TTL != nil {
		expiresAt := now.Add(*params.TTL)
		request.ExpiresAt = &expiresAt
	}

	// Write order: bundle before the request that references it,
	// record before index, announcements last. A crash in the middle
	// leaves at worst an unannounced pending request, never a
	// dangling reference.
	bundleFields, err := evidence.EncodeBundle(bundle)
	if err != nil {
		return nil, err
	}
	if err := d.store.PutRecord(ctx, d.keys.Bundle(tn, bundle.ID), bundleFields); err != nil {
		return nil, fmt.Errorf("gate: storing bundle %s: %w", bundle.ID, err)
	}
	if err := d.store.PutRecord(ctx, d.keys.Request(tn, request.ID), encodeRequest(request)); err != nil {
		return nil, fmt.Errorf("gate: storing request %s: %w", request.ID, err)
	}
	if err := d.store.IndexAdd(ctx, d.keys.PendingIndex(tn), request.ID, expiryScore(request.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("gate: indexing request %s: %w", request.ID, err)
	}

	if _, err := d.audit.GateRequested(ctx, tn, audit.RequestedParams{
		TaskID:    request.TaskID,
		RequestID: request.ID,
		GateType:  string(request.Type),
		Actor:     request.RequestedBy,
	}); err != nil {
		return nil, err
	}

	fields := map[string]string{
		eventFieldRequestID:   request.ID,
		eventFieldGateType:    string(request.Type),
		eventFieldRequestedBy: request.RequestedBy,
		eventFieldBundleID:    request.BundleID,
	}
	if _, err := d.stream.Publish(ctx, tn, d.streamName, stream.Event{
		Type:      stream.EventGateRequested,
		SessionID: request.SessionID,
		Fields:    fields,
	}); err != nil {
		return nil, err
	}

	d.logger.Info("gate requested",
		"request", request.ID,
		"task", request.TaskID,
		"gate_type", string(request.Type),
		"tenant", d.keys.Resolve(tn).String(),
	)
	return request, nil
}

// DecisionParams describes a reviewer verdict.
type DecisionParams struct {
	Approved bool

	// Reviewer identifies the human deciding. Required.
	Reviewer string

	// Reason is required on rejection: a rejected task goes back to
	// a worker that needs to know what to fix.
	Reason string

	// Conditions are optional strings attached to an approval.
	Conditions []string
}

// Decide commits the one decision a request ever gets. The commit is
// an atomic compare-and-swap on the stored status field; losing the
// swap to a concurrent decision or to the expiry sweep surfaces as a
// *StateError carrying the status that actually committed. A request
// that does not exist returns an error wrapping store.ErrNotFound.
func (d *Dispatcher) Decide(ctx context.Context, tn tenant.Tenant, requestID string, params DecisionParams) (*Decision, error) {
	if requestID == "" {
		return nil, fmt.Errorf("gate: decide: empty request id")
	}
	if params.Reviewer == "" {
		return nil, fmt.Errorf("gate: decide %s: missing reviewer", requestID)
	}
	if !params.Approved && params.Reason == "" {
		return nil, fmt.Errorf("gate: decide %s: rejection requires a reason", requestID)
	}

	target := StatusApproved
	if !params.Approved {
		target = StatusRejected
	}

	key := d.keys.Request(tn, requestID)
	request, err := d.load(ctx, key, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return nil, &StateError{RequestID: requestID, Status: request.Status, Attempted: target}
	}

	decision := &Decision{
		ID:         "decision-" + uuid.New().String(),
		RequestID:  requestID,
		Approved:   params.Approved,
		Reviewer:   params.Reviewer,
		Reason:     params.Reason,
		DecidedAt:  d.clock.Now().UTC(),
		Conditions: params.Conditions,
	}
	also, err := decisionFields(decision)
	if err != nil {
		return nil, err
	}

	swapped, err := d.store.SwapField(ctx, key, fieldStatus, string(StatusPending), string(target), also)
	if err != nil {
		return nil, fmt.Errorf("gate: committing decision on %s: %w", requestID, err)
	}
	if !swapped {
		// Lost the race to a concurrent decision or the sweep.
		// Re-read and surface what actually committed.
		committed, err := d.load(ctx, key, requestID)
		if err != nil {
			return nil, err
		}
		return nil, &StateError{RequestID: requestID, Status: committed.Status, Attempted: target}
	}

	if err := d.store.IndexRemove(ctx, d.keys.PendingIndex(tn), requestID); err != nil {
		return nil, fmt.Errorf("gate: unindexing %s: %w", requestID, err)
	}

	if _, err := d.audit.GateDecision(ctx, tn, audit.DecisionParams{
		TaskID:     request.TaskID,
		RequestID:  requestID,
		DecisionID: decision.ID,
		GateType:   string(request.Type),
		Actor:      decision.Reviewer,
		Approved:   decision.Approved,
		Reason:     decision.Reason,
	}); err != nil {
		return nil, err
	}

	eventType := stream.EventGateApproved
	if !params.Approved {
		eventType = stream.EventGateRejected
	}
	fields := map[string]string{
		eventFieldRequestID:  requestID,
		eventFieldGateType:   string(request.Type),
		eventFieldDecisionID: decision.ID,
		eventFieldReviewer:   decision.Reviewer,
	}
	if decision.Reason != "" {
		fields[eventFieldReason] = decision.Reason
	}
	if len(decision.Conditions) > 0 {
		encoded, err := json.Marshal(decision.Conditions)
		if err != nil {
			return nil, fmt.Errorf("gate: encoding conditions of %s: %w", decision.ID, err)
		}
		fields[eventFieldConditions] = string(encoded)
	}
	if _, err := d.stream.Publish(ctx, tn, d.streamName, stream.Event{
		Type:      eventType,
		SessionID: request.SessionID,
		Fields:    fields,
	}); err != nil {
		return nil, err
	}

	d.logger.Info("gate decided",
		"request", requestID,
		"task", request.TaskID,
		"status", string(target),
		"reviewer", decision.Reviewer,
		"tenant", d.keys.Resolve(tn).String(),
	)
	return decision, nil
}

// PendingOptions narrow a Pending listing.
type PendingOptions struct {
	// Type filters to one gate type. Empty means all types.
	Type Type
}

// Pending returns pending requests in ascending expiry order, soonest
// deadline first and never-expiring requests last. Index entries
// whose request has already left pending are skipped, not surfaced:
// the status field is the commit point, the index is advisory.
func (d *Dispatcher) Pending(ctx context.Context, tn tenant.Tenant, opts PendingOptions) ([]*Request, error) {
	ids, err := d.store.IndexMembers(ctx, d.keys.PendingIndex(tn))
	if err != nil {
		return nil, fmt.Errorf("gate: listing pending index: %w", err)
	}

	pending := make([]*Request, 0, len(ids))
	for _, id := range ids {
		request, err := d.load(ctx, d.keys.Request(tn, id), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if request.Status != StatusPending {
			continue
		}
		if opts.Type != "" && request.Type != opts.Type {
			continue
		}
		pending = append(pending, request)
	}
	return pending, nil
}

// Get returns one request with its decision attached, or (nil, nil)
// when no such request exists.
func (d *Dispatcher) Get(ctx context.Context, tn tenant.Tenant, requestID string) (*Request, error) {
	request, err := d.load(ctx, d.keys.Request(tn, requestID), requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return request, nil
}

// Bundle returns the stored evidence bundle, or (nil, nil) when no
// such bundle exists.
func (d *Dispatcher) Bundle(ctx context.Context, tn tenant.Tenant, bundleID string) (*evidence.Bundle, error) {
	fields, err := d.store.GetRecord(ctx, d.keys.Bundle(tn, bundleID))
	if err != nil {
		return nil, fmt.Errorf("gate: loading bundle %s: %w", bundleID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return evidence.DecodeBundle(fields)
}

// load reads and decodes one request record. An absent record returns
// an error wrapping store.ErrNotFound; read-side callers translate
// the sentinel, write-side callers propagate it.
func (d *Dispatcher) load(ctx context.Context, key, requestID string) (*Request, error) {
	fields, err := d.store.GetRecord(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("gate: loading request %s: %w", requestID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("gate: request %s: %w", requestID, store.ErrNotFound)
	}
	return decodeRequest(fields)
}
