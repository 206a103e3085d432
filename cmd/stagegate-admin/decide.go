// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/cmd/stagegate-admin/cli"
	"github.com/stagegate-io/stagegate/gate"
	"github.com/stagegate-io/stagegate/lib/service"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

func approveCommand() *cli.Command {
	var common service.CommonFlags
	var reviewer, reason string
	var conditions []string

	return &cli.Command{
		Name:    "approve",
		Summary: "Approve a pending request.",
		Description: `Record an approval for a pending request. The decision is final: a
request that has been approved, rejected, or expired refuses further
decisions.

Conditions attach reviewer obligations to the approval ("merge behind
feature flag"). They are recorded on the decision and published with
the approval event; enforcing them is up to the pipeline.`,
		Usage: "stagegate-admin approve <request-id> --reviewer <name> [flags]",
		Examples: []cli.Example{
			{
				Description: "Plain approval",
				Command:     "stagegate-admin approve gate-7f3a1c2e --reviewer alice",
			},
			{
				Description: "Approval with conditions",
				Command:     "stagegate-admin approve gate-7f3a1c2e --reviewer alice --condition \"merge behind feature flag\"",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("approve", pflag.ContinueOnError)
			service.RegisterCommonFlags(flagSet, &common)
			flagSet.StringVar(&reviewer, "reviewer", "", "reviewer identity (required)")
			flagSet.StringVar(&reason, "reason", "", "free-form approval rationale")
			flagSet.StringArrayVar(&conditions, "condition", nil, "approval condition (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			return runDecide(common, args, gate.DecisionParams{
				Approved:   true,
				Reviewer:   reviewer,
				Reason:     reason,
				Conditions: conditions,
			})
		},
	}
}

func rejectCommand() *cli.Command {
	var common service.CommonFlags
	var reviewer, reason string

	return &cli.Command{
		Name:    "reject",
		Summary: "Reject a pending request.",
		Description: `Record a rejection for a pending request. A rejection always carries
a reason; the workers resuming the task read it from the rejection
event.`,
		Usage: "stagegate-admin reject <request-id> --reviewer <name> --reason <text> [flags]",
		Examples: []cli.Example{
			{
				Description: "Reject with a reason",
				Command:     "stagegate-admin reject gate-7f3a1c2e --reviewer bob --reason \"missing rollback plan\"",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("reject", pflag.ContinueOnError)
			service.RegisterCommonFlags(flagSet, &common)
			flagSet.StringVar(&reviewer, "reviewer", "", "reviewer identity (required)")
			flagSet.StringVar(&reason, "reason", "", "rejection reason (required)")
			return flagSet
		},
		Run: func(args []string) error {
			return runDecide(common, args, gate.DecisionParams{
				Approved: false,
				Reviewer: reviewer,
				Reason:   reason,
			})
		},
	}
}

// runDecide is the shared body of approve and reject: resolve the
// request id, record the decision, and report the outcome. A race
// with another reviewer or the expiry sweep is reported as the
// committed status rather than a raw error.
func runDecide(common service.CommonFlags, args []string, params gate.DecisionParams) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one request id")
	}
	requestID := args[0]

	return withRuntime(common, func(ctx context.Context, runtime *service.Runtime, tn tenant.Tenant) error {
		decision, err := runtime.Gate.Decide(ctx, tn, requestID, params)
		if err != nil {
			var stateErr *gate.StateError
			if errors.As(err, &stateErr) {
				fmt.Fprintf(os.Stderr, "request %s is already %s; no decision recorded\n",
					stateErr.RequestID, stateErr.Status)
				return &cli.ExitError{Code: 1}
			}
			return err
		}

		verdict := "rejected"
		if decision.Approved {
			verdict = "approved"
		}
		fmt.Printf("%s %s by %s at %s\n", requestID, verdict, decision.Reviewer,
			decision.DecidedAt.UTC().Format(time.RFC3339))
		fmt.Printf("decision: %s\n", decision.ID)
		for _, condition := range decision.Conditions {
			fmt.Printf("condition: %s\n", condition)
		}
		return nil
	})
}
