// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/stagegate-io/stagegate/lib/service"
	"github.com/stagegate-io/stagegate/lib/tenant"
	"github.com/stagegate-io/stagegate/lib/version"
)

// withRuntime is the shared connection sequence for leaf commands:
// resolve configuration from the common flags, open the runtime, and
// call fn with the resolved tenant. The store connection is closed
// before return.
func withRuntime(flags service.CommonFlags, fn func(ctx context.Context, runtime *service.Runtime, tn tenant.Tenant) error) error {
	if flags.ShowVersion {
		fmt.Printf("stagegate-admin %s\n", version.Info())
		return nil
	}

	cfg, err := service.ResolveConfig(flags)
	if err != nil {
		return err
	}
	level, err := service.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := service.NewLogger(level).With("component", "admin")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := service.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runtime.Close()

	tn, err := runtime.ResolveTenant(flags.Tenant)
	if err != nil {
		return err
	}

	return fn(ctx, runtime, tn)
}
