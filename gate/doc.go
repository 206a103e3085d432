// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate implements human approval gates for pipeline stage
// transitions. A worker that reaches a checkpoint submits a gate
// request with a sealed evidence bundle; the pipeline for that task
// stops until a reviewer approves or rejects, or the optional
// deadline passes and the expiry sweep closes the request.
//
// A request has exactly one transition out of pending in its life.
// Concurrent decisions, and decisions racing the sweep, are settled
// by an atomic compare-and-swap on the stored status: the first
// writer commits, every later writer gets a *StateError carrying the
// committed status. There is no queue and no retry; a closed request
// stays closed.
//
// The dispatcher publishes every transition on the pipeline event
// stream and records requests and decisions in the audit trail.
// Expiry is the exception: it is announced on the stream only, so the
// audit trail holds human actions and nothing else.
package gate
