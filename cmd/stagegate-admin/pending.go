// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/cmd/stagegate-admin/cli"
	"github.com/stagegate-io/stagegate/gate"
	"github.com/stagegate-io/stagegate/lib/service"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

func pendingCommand() *cli.Command {
	var common service.CommonFlags
	var gateType string
	var asJSON bool

	return &cli.Command{
		Name:    "pending",
		Summary: "List pending approval requests.",
		Description: `List approval requests still awaiting a decision, ordered by expiry:
the most urgent first, unbounded requests last.`,
		Usage: "stagegate-admin pending [flags]",
		Examples: []cli.Example{
			{Description: "Everything awaiting review", Command: "stagegate-admin pending"},
			{Description: "Only code reviews", Command: "stagegate-admin pending --gate-type code-review"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pending", pflag.ContinueOnError)
			service.RegisterCommonFlags(flagSet, &common)
			flagSet.StringVar(&gateType, "gate-type", "", "only list requests of this gate type")
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			return withRuntime(common, func(ctx context.Context, runtime *service.Runtime, tn tenant.Tenant) error {
				var options gate.PendingOptions
				if gateType != "" {
					parsed, err := gate.ParseType(gateType)
					if err != nil {
						return err
					}
					options.Type = parsed
				}

				requests, err := runtime.Gate.Pending(ctx, tn, options)
				if err != nil {
					return err
				}

				reports := make([]requestReport, 0, len(requests))
				for _, request := range requests {
					reports = append(reports, newRequestReport(request))
				}

				if asJSON {
					return cli.WriteJSON(os.Stdout, reports)
				}

				if len(reports) == 0 {
					fmt.Fprintln(os.Stderr, "no pending requests")
					return nil
				}

				writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
				fmt.Fprintf(writer, "REQUEST\tTASK\tTYPE\tREQUESTED BY\tEXPIRES\n")
				for _, report := range reports {
					fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
						report.ID, report.TaskID, report.GateType,
						report.RequestedBy, formatExpiry(report.ExpiresAt))
				}
				return writer.Flush()
			})
		},
	}
}
