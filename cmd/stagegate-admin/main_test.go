// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	root := rootCommand()

	want := []string{"info", "pending", "show", "history", "approve", "reject", "version"}
	if len(root.Subcommands) != len(want) {
		t.Fatalf("root has %d subcommands, want %d", len(root.Subcommands), len(want))
	}
	for i, name := range want {
		if root.Subcommands[i].Name != name {
			t.Errorf("subcommand %d = %q, want %q", i, root.Subcommands[i].Name, name)
		}
		if root.Subcommands[i].Summary == "" {
			t.Errorf("subcommand %q has no summary", name)
		}
	}
}

func TestShowRequiresRequestID(t *testing.T) {
	if err := showCommand().Execute(nil); err == nil {
		t.Error("show with no args should error")
	}
	if err := showCommand().Execute([]string{"a", "b"}); err == nil {
		t.Error("show with two args should error")
	}
}

func TestHistoryRequiresTaskID(t *testing.T) {
	if err := historyCommand().Execute(nil); err == nil {
		t.Error("history with no args should error")
	}
}

func TestDecideRequiresRequestID(t *testing.T) {
	if err := approveCommand().Execute(nil); err == nil {
		t.Error("approve with no args should error")
	}
	if err := rejectCommand().Execute(nil); err == nil {
		t.Error("reject with no args should error")
	}
}
