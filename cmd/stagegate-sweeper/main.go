// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// stagegate-sweeper is the gate expiry daemon. On a fixed interval it
// collects every pending approval request whose deadline has passed,
// marks it EXPIRED, and announces the expiry on the pipeline stream.
// One sweeper per deployment is sufficient; running several is safe
// because the status transition is a compare-and-swap and only the
// winner announces.
//
//	stagegate-sweeper --config /etc/stagegate/stagegate.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/gate"
	"github.com/stagegate-io/stagegate/lib/clock"
	"github.com/stagegate-io/stagegate/lib/service"
	"github.com/stagegate-io/stagegate/lib/tenant"
	"github.com/stagegate-io/stagegate/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var flags service.CommonFlags
	var once bool

	flagSet := pflag.NewFlagSet("stagegate-sweeper", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	service.RegisterCommonFlags(flagSet, &flags)
	flagSet.BoolVar(&once, "once", false, "run a single sweep and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "usage: stagegate-sweeper [flags]\n\nFlags:\n%s", flagSet.FlagUsages())
			return nil
		}
		return err
	}

	if flags.ShowVersion {
		fmt.Printf("stagegate-sweeper %s\n", version.Info())
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
	logger := service.NewLogger(level).With("component", "sweeper")

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

	if once {
		return sweep(ctx, runtime.Gate, tn, logger)
	}

	interval := cfg.SweepInterval()
	logger.Info("sweeper started", "tenant", tn.String(), "interval", interval)

	ticker := clock.Real().NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper stopping")
			return nil
		case <-ticker.C:
			if err := sweep(ctx, runtime.Gate, tn, logger); err != nil {
				// A failed sweep is retried on the next tick; the
				// only fatal condition is context cancellation.
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// sweep runs one expiry collection cycle and logs what it expired.
func sweep(ctx context.Context, dispatcher *gate.Dispatcher, tn tenant.Tenant, logger *slog.Logger) error {
	expired, err := dispatcher.SweepExpired(ctx, tn)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}
	ids := make([]string, len(expired))
	for i, request := range expired {
		ids[i] = request.ID
	}
	logger.Info("sweep expired requests", "count", len(ids), "ids", ids)
	return nil
}
