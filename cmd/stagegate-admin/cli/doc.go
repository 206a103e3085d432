// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind stagegate-admin:
// a [Command] tree with pflag flag sets, structured help output,
// typo suggestions for commands and flags, and JSON output helpers.
//
// Nothing here knows about gates, streams, or the store; the leaf
// commands in package main own all domain behavior.
package cli
