// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/lib/config"
)

// CommonFlags holds the flag values shared by the store-facing
// StageGate binaries. Call [RegisterCommonFlags] to bind these to a
// flag set before parsing.
type CommonFlags struct {
	// ConfigPath is the configuration file path. Empty falls back
	// to the STAGEGATE_CONFIG environment variable, then to
	// built-in development defaults.
	ConfigPath string

	// Tenant overrides the configured default tenant for this
	// invocation. Only meaningful when tenancy is enabled.
	Tenant string

	// LogLevel overrides the configured log level.
	LogLevel string

	// ShowVersion requests version output and exit.
	ShowVersion bool
}

// RegisterCommonFlags binds [CommonFlags] fields to flagSet with
// standard names, defaults, and help text. Binaries call this before
// Parse, then register any binary-specific flags.
func RegisterCommonFlags(flagSet *pflag.FlagSet, flags *CommonFlags) {
	flagSet.StringVar(&flags.ConfigPath, "config", "", "configuration file path (default: $STAGEGATE_CONFIG)")
	flagSet.StringVar(&flags.Tenant, "tenant", "", "tenant override for this invocation")
	flagSet.StringVar(&flags.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flagSet.BoolVar(&flags.ShowVersion, "version", false, "print version information and exit")
}

// ResolveConfig loads configuration according to the parsed flags:
// an explicit --config path wins, then the STAGEGATE_CONFIG
// environment variable, then built-in development defaults. Flag
// overrides are applied before validation, so a bad --log-level is
// reported the same way as a bad file value.
func ResolveConfig(flags CommonFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	switch {
	case flags.ConfigPath != "":
		cfg, err = config.LoadFile(flags.ConfigPath)
	case os.Getenv("STAGEGATE_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
