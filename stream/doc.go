// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream manages the append-only event log that coordinates a
// pipeline: bootstrap (streams and consumer groups exist before anyone
// reads or writes), publishing with bounded growth, and introspection.
//
// The package stops short of consumption. Workers read through their
// consumer groups directly against the store; the Service here is the
// producer and administrative surface that those workers rely on
// having run first.
//
// Every operation takes an explicit tenant. Key construction is
// delegated to tenant.Keyspace, so a disabled-tenancy deployment and a
// multi-tenant one differ only in configuration, never in call sites.
package stream
