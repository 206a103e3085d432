// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. When a command returns an ExitError, main exits with
// the given code and prints nothing more; the command is expected to
// have already written its own output.
//
// This is for commands where a non-zero exit is a valid outcome
// rather than a failure: "history --verify" finding a tampered trail,
// or "show" on an unknown request id.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this interface on
// returned errors to distinguish a handled non-zero exit from an
// unexpected error to display.
func (e *ExitError) ExitCode() int {
	return e.Code
}
