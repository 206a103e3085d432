// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package tenant defines the tenant identifier type and the keyspace
// that maps logical entity names to tenant-qualified storage keys.
//
// The tenant is never ambient state: every operation in the layers
// above takes an explicit Tenant parameter, and the Keyspace is the
// single place where that parameter becomes part of a storage address.
// Two distinct tenants can never produce the same key for any entity.
package tenant

import (
	"fmt"
	"strings"
)

// Tenant identifies one isolated namespace in the backing store. The
// zero value is valid as an argument everywhere a Tenant is accepted:
// the Keyspace resolves it to the configured fallback tenant rather
// than failing the operation.
type Tenant string

// Default is the fallback tenant used when multi-tenancy is enabled
// but a caller supplies no tenant.
const Default Tenant = "default"

// maxLength bounds tenant identifiers so they stay usable as key
// segments in the backing store.
const maxLength = 64

// Validate checks that the tenant is non-empty, within length bounds,
// and uses only lowercase alphanumerics, hyphen, and underscore. The
// colon is the key separator and can never appear in a tenant.
func (t Tenant) Validate() error {
	if t == "" {
		return fmt.Errorf("tenant: empty identifier")
	}
	if len(t) > maxLength {
		return fmt.Errorf("tenant: identifier exceeds %d characters", maxLength)
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("tenant: invalid character %q at position %d", c, i)
		}
	}
	return nil
}

func (t Tenant) String() string { return string(t) }

// Keyspace builds storage keys for every entity the system persists.
// With multi-tenancy disabled all keys use a fixed base form and the
// tenant argument is ignored. With multi-tenancy enabled the resolved
// tenant is inserted as the second key segment.
type Keyspace struct {
	enabled  bool
	fallback Tenant
}

// NewKeyspace returns a Keyspace. An empty fallback selects Default.
func NewKeyspace(enabled bool, fallback Tenant) *Keyspace {
	if fallback == "" {
		fallback = Default
	}
	return &Keyspace{enabled: enabled, fallback: fallback}
}

// Enabled reports whether keys are tenant-qualified.
func (k *Keyspace) Enabled() bool { return k.enabled }

// Resolve substitutes the fallback tenant for an empty tenant.
// Isolation degrades to the fallback namespace, never to an error.
func (k *Keyspace) Resolve(t Tenant) Tenant {
	if t == "" {
		return k.fallback
	}
	return t
}

// key joins the segments under the "sg" root, inserting the resolved
// tenant when multi-tenancy is enabled.
func (k *Keyspace) key(t Tenant, segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, "sg")
	if k.enabled {
		parts = append(parts, string(k.Resolve(t)))
	}
	parts = append(parts, segments...)
	return strings.Join(parts, ":")
}

// Stream returns the storage key for a named event log.
func (k *Keyspace) Stream(t Tenant, name string) string {
	return k.key(t, "stream", name)
}

// Request returns the storage key for a gate request record.
func (k *Keyspace) Request(t Tenant, id string) string {
	return k.key(t, "gate", "request", id)
}

// Bundle returns the storage key for an evidence bundle record.
func (k *Keyspace) Bundle(t Tenant, id string) string {
	return k.key(t, "evidence", "bundle", id)
}

// PendingIndex returns the key of the sorted index holding pending
// gate request ids scored by expiry.
func (k *Keyspace) PendingIndex(t Tenant) string {
	return k.key(t, "gate", "pending")
}

// TaskHistory returns the key of the per-task ordered audit log.
func (k *Keyspace) TaskHistory(t Tenant, taskID string) string {
	return k.key(t, "audit", "task", taskID)
}

// AuditStream returns the key of the shared audit stream.
func (k *Keyspace) AuditStream(t Tenant) string {
	return k.key(t, "audit", "stream")
}
