// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// stagegate-admin is the operator CLI for approval gates: list what
// is waiting, inspect a request and its evidence, approve or reject,
// and audit a task's decision trail.
//
//	stagegate-admin pending
//	stagegate-admin show gate-7f3a...
//	stagegate-admin approve gate-7f3a... --reviewer alice --condition "merge behind feature flag"
//	stagegate-admin history task-42 --verify
package main

import (
	"fmt"
	"os"

	"github.com/stagegate-io/stagegate/cmd/stagegate-admin/cli"
	"github.com/stagegate-io/stagegate/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an ExitError
		// with the desired code. Don't print a redundant "error:"
		// line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return rootCommand().Execute(os.Args[1:])
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "stagegate-admin",
		Summary: "Operate StageGate approval gates.",
		Description: `stagegate-admin operates the approval gates of a StageGate deployment:
inspect the stream, list pending requests, review evidence, record
decisions, and audit a task's decision trail.

Connection settings come from --config, the STAGEGATE_CONFIG
environment variable, or built-in development defaults, in that
order.`,
		Subcommands: []*cli.Command{
			infoCommand(),
			pendingCommand(),
			showCommand(),
			historyCommand(),
			approveCommand(),
			rejectCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information.",
		Run: func(args []string) error {
			fmt.Printf("stagegate-admin %s\n", version.Full())
			return nil
		},
	}
}
