// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/cmd/stagegate-admin/cli"
	"github.com/stagegate-io/stagegate/lib/evidence"
	"github.com/stagegate-io/stagegate/lib/service"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

// showReport is the JSON shape of "show" output: the request plus
// its evidence bundle and the digest verification verdict.
type showReport struct {
	Request        requestReport    `json:"request"`
	Bundle         *evidence.Bundle `json:"bundle,omitempty"`
	DigestVerified *bool            `json:"digest_verified,omitempty"`
}

func showCommand() *cli.Command {
	var common service.CommonFlags
	var asJSON bool

	return &cli.Command{
		Name:    "show",
		Summary: "Show one request with its evidence bundle.",
		Description: `Show a single approval request in full: lifecycle fields, the
attached decision if one was recorded, and the evidence bundle with
its digest verification verdict.`,
		Usage: "stagegate-admin show <request-id> [flags]",
		Examples: []cli.Example{
			{Description: "Inspect a request", Command: "stagegate-admin show gate-7f3a1c2e"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			service.RegisterCommonFlags(flagSet, &common)
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one request id\n\nusage: stagegate-admin show <request-id>")
			}
			requestID := args[0]

			return withRuntime(common, func(ctx context.Context, runtime *service.Runtime, tn tenant.Tenant) error {
				request, err := runtime.Gate.Get(ctx, tn, requestID)
				if err != nil {
					return err
				}
				if request == nil {
					fmt.Fprintf(os.Stderr, "no request %q\n", requestID)
					return &cli.ExitError{Code: 1}
				}

				report := showReport{Request: newRequestReport(request)}

				bundle, err := runtime.Gate.Bundle(ctx, tn, request.BundleID)
				if err != nil {
					return err
				}
				if bundle != nil {
					verified, err := bundle.VerifyDigest()
					if err != nil {
						return err
					}
					report.Bundle = bundle
					report.DigestVerified = &verified
				}

				if asJSON {
					return cli.WriteJSON(os.Stdout, report)
				}
				return printShowReport(report)
			})
		},
	}
}

func printShowReport(report showReport) error {
	request := report.Request

	fmt.Printf("request:      %s\n", request.ID)
	fmt.Printf("status:       %s\n", request.Status)
	fmt.Printf("gate type:    %s\n", request.GateType)
	fmt.Printf("task:         %s\n", request.TaskID)
	fmt.Printf("session:      %s\n", request.SessionID)
	fmt.Printf("requested by: %s\n", request.RequestedBy)
	fmt.Printf("created:      %s\n", request.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Printf("expires:      %s\n", formatExpiry(request.ExpiresAt))

	if decision := request.Decision; decision != nil {
		verdict := "rejected"
		if decision.Approved {
			verdict = "approved"
		}
		fmt.Println()
		fmt.Printf("decision:     %s (%s)\n", decision.ID, verdict)
		fmt.Printf("reviewer:     %s\n", decision.Reviewer)
		fmt.Printf("decided:      %s\n", decision.DecidedAt.UTC().Format(time.RFC3339))
		if decision.Reason != "" {
			fmt.Printf("reason:       %s\n", decision.Reason)
		}
		for _, condition := range decision.Conditions {
			fmt.Printf("condition:    %s\n", condition)
		}
	}

	if report.Bundle == nil {
		fmt.Println()
		fmt.Printf("evidence bundle %s is missing from the store\n", request.BundleID)
		return nil
	}

	bundle := report.Bundle
	verdict := "FAILED"
	if report.DigestVerified != nil && *report.DigestVerified {
		verdict = "ok"
	}

	fmt.Println()
	fmt.Printf("bundle:       %s\n", bundle.ID)
	fmt.Printf("digest:       %s (%s)\n", bundle.Digest, verdict)
	if bundle.GitRef != "" {
		fmt.Printf("git ref:      %s\n", bundle.GitRef)
	}
	if bundle.Summary != "" {
		fmt.Printf("summary:      %s\n", bundle.Summary)
	}

	if len(bundle.Items) > 0 {
		fmt.Println()
		writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
		fmt.Fprintf(writer, "TYPE\tPATH\tDESCRIPTION\n")
		for _, item := range bundle.Items {
			fmt.Fprintf(writer, "%s\t%s\t%s\n", item.Type, item.Path, item.Description)
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	return nil
}
