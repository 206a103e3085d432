// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// stagegate-init bootstraps the pipeline topology: it ensures the
// event stream exists and creates one consumer group per pipeline
// stage, then exits. Safe to run repeatedly; groups that already
// exist are reported rather than recreated.
//
// Run it once per tenant before starting workers or the sweeper:
//
//	stagegate-init --config /etc/stagegate/stagegate.yaml
//	stagegate-init --config /etc/stagegate/stagegate.yaml --tenant acme
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/lib/service"
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
	flagSet := pflag.NewFlagSet("stagegate-init", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	service.RegisterCommonFlags(flagSet, &flags)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "usage: stagegate-init [flags]\n\nFlags:\n%s", flagSet.FlagUsages())
			return nil
		}
		return err
	}

	if flags.ShowVersion {
		fmt.Printf("stagegate-init %s\n", version.Info())
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
	logger := service.NewLogger(level).With("component", "init")

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

	streamName := runtime.Stages.Stream
	if streamName == "" {
		streamName = cfg.Stream.Name
	}

	report, err := runtime.Stream.InitGroups(ctx, tn, streamName, runtime.Stages.Groups())
	if err != nil {
		return err
	}

	logger.Info("pipeline topology ready",
		"tenant", tn.String(),
		"stream", streamName,
		"created", report.Created,
		"existing", report.Existing,
	)
	return nil
}
