// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the common startup sequence for StageGate
// binaries: flag registration, configuration loading, logger
// construction, and runtime assembly.
//
// Every store-facing binary follows the same shape. It registers
// [CommonFlags] plus its own flags on a pflag set, resolves
// configuration with [ResolveConfig], builds a logger with
// [NewLogger], and calls [Open] to connect to Redis and wire the
// stream, audit, and gate layers together. The resulting [Runtime]
// carries everything a binary needs; Close releases the connection
// pool.
//
// Open performs the full dial-and-verify sequence against Redis, so
// misconfiguration surfaces at startup rather than at first use.
package service
