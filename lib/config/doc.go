// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for StageGate
// components.
//
// Configuration is loaded from a single file specified by either the
// STAGEGATE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search: what the named file says is the whole
// configuration.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. A staging or production deployment
// typically overrides the Redis address and enables tenancy while the
// base section keeps developer-friendly localhost defaults.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Redis, Stream, Audit, Tenancy, Sweep
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends only on lib/tenant and lib/sealed.
package config
