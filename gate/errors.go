// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"errors"
	"fmt"
)

// StateError reports an attempted transition out of a terminal
// status: a decision on an already-decided or expired request, or a
// sweep racing a decision. Callers use errors.As to read the
// committed status:
//
//	var stateErr *gate.StateError
//	if errors.As(err, &stateErr) {
//	    if stateErr.Status == gate.StatusExpired { ... }
//	}
type StateError struct {
	// RequestID is the request whose transition was refused.
	RequestID string
	// Status is the committed status found in the store.
	Status Status
	// Attempted is the status the caller tried to transition to.
	Attempted Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("gate: request %s is %s, cannot transition to %s", e.RequestID, e.Status, e.Attempted)
}

// IsStateError reports whether err carries a *StateError.
func IsStateError(err error) bool {
	var stateErr *StateError
	return errors.As(err, &stateErr)
}
