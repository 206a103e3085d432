// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"fmt"
	"time"
)

// Type tags the pipeline checkpoint a gate guards. One tag per
// checkpoint; the stage definitions bind each pipeline stage to the
// gate type that must clear before the stage's output moves on.
type Type string

const (
	// BacklogApproval clears discovery output (PRD, backlog) into
	// design.
	BacklogApproval Type = "backlog-approval"

	// DesignApproval clears the design package into development.
	DesignApproval Type = "design-approval"

	// CodeReview clears a development change into validation.
	CodeReview Type = "code-review"

	// ValidationSignoff clears validation results into deployment.
	ValidationSignoff Type = "validation-signoff"

	// ReleaseApproval clears a deployment to proceed.
	ReleaseApproval Type = "release-approval"
)

// Types returns all known gate types in pipeline order.
func Types() []Type {
	return []Type{BacklogApproval, DesignApproval, CodeReview, ValidationSignoff, ReleaseApproval}
}

// ParseType validates a gate type string.
func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("gate: unknown gate type %q", s)
}

// Status is the lifecycle state of a gate request.
type Status string

const (
	// StatusPending is the initial state: the request awaits a human
	// decision.
	StatusPending Status = "PENDING"

	// StatusApproved is terminal: a reviewer approved.
	StatusApproved Status = "APPROVED"

	// StatusRejected is terminal: a reviewer rejected.
	StatusRejected Status = "REJECTED"

	// StatusExpired is terminal: the expiry sweep found the deadline
	// elapsed before any decision.
	StatusExpired Status = "EXPIRED"
)

// Terminal reports whether no further transition is defined out of
// the status. Every status except PENDING is terminal.
func (s Status) Terminal() bool { return s != StatusPending }

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return Status(s), nil
	}
	return "", fmt.Errorf("gate: unknown status %q", s)
}

// Request is one gate request. Created by Dispatcher.Request, mutated
// only by Decide or the expiry sweep, never deleted.
type Request struct {
	ID          string
	TaskID      string
	SessionID   string
	Type        Type
	Status      Status
	BundleID    string
	RequestedBy string
	CreatedAt   time.Time

	// ExpiresAt is nil for requests that never expire. The pending
	// index maps absence to an unbounded sort score; nothing outside
	// the index adapter ever sees a sentinel value.
	ExpiresAt *time.Time

	// Decision is attached once the request reaches APPROVED or
	// REJECTED. Nil while pending and for expired requests.
	Decision *Decision
}

// Decision is the immutable record of one reviewer verdict. Created
// exactly once per request, at the moment Decide commits.
type Decision struct {
	ID        string
	RequestID string
	Approved  bool
	Reviewer  string
	Reason    string
	DecidedAt time.Time

	// Conditions are optional approval conditions the reviewer
	// attached ("merge behind feature flag", ...).
	Conditions []string
}
