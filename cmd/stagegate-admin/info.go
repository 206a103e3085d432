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
	"github.com/stagegate-io/stagegate/lib/service"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

// streamReport is the JSON shape of "info" output.
type streamReport struct {
	Name    string        `json:"name"`
	Exists  bool          `json:"exists"`
	Length  int64         `json:"length"`
	FirstID string        `json:"first_id,omitempty"`
	LastID  string        `json:"last_id,omitempty"`
	Groups  []groupReport `json:"groups"`
}

type groupReport struct {
	Name            string `json:"name"`
	Consumers       int64  `json:"consumers"`
	Pending         int64  `json:"pending"`
	LastDeliveredID string `json:"last_delivered_id"`
}

func infoCommand() *cli.Command {
	var common service.CommonFlags
	var streamName string
	var asJSON bool

	return &cli.Command{
		Name:    "info",
		Summary: "Show pipeline stream length and consumer groups.",
		Description: `Show the pipeline event stream: whether it exists, its length, its
oldest and newest entry ids, and per consumer group the member count
and unacknowledged delivery backlog.`,
		Usage: "stagegate-admin info [flags]",
		Examples: []cli.Example{
			{Description: "Inspect the configured stream", Command: "stagegate-admin info"},
			{Description: "Inspect another stream as JSON", Command: "stagegate-admin info --stream hotfix --json"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			service.RegisterCommonFlags(flagSet, &common)
			flagSet.StringVar(&streamName, "stream", "", "stream name (default: the configured pipeline stream)")
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			return withRuntime(common, func(ctx context.Context, runtime *service.Runtime, tn tenant.Tenant) error {
				name := streamName
				if name == "" {
					name = runtime.Stages.Stream
				}
				if name == "" {
					name = runtime.Config.Stream.Name
				}

				info, err := runtime.Stream.Info(ctx, tn, name)
				if err != nil {
					return err
				}

				report := streamReport{
					Name:   info.Name,
					Exists: info.Exists,
					Length: info.Length,
					Groups: make([]groupReport, 0, len(info.Groups)),
				}
				if info.First != nil {
					report.FirstID = info.First.ID
				}
				if info.Last != nil {
					report.LastID = info.Last.ID
				}
				for _, group := range info.Groups {
					report.Groups = append(report.Groups, groupReport{
						Name:            group.Name,
						Consumers:       group.Consumers,
						Pending:         group.Pending,
						LastDeliveredID: group.LastDeliveredID,
					})
				}

				if asJSON {
					return cli.WriteJSON(os.Stdout, report)
				}

				if !report.Exists {
					fmt.Fprintf(os.Stderr, "stream %q does not exist; run stagegate-init first\n", report.Name)
					return &cli.ExitError{Code: 1}
				}

				fmt.Printf("stream:  %s\n", report.Name)
				fmt.Printf("length:  %d\n", report.Length)
				fmt.Printf("first:   %s\n", report.FirstID)
				fmt.Printf("last:    %s\n", report.LastID)

				if len(report.Groups) == 0 {
					fmt.Println("groups:  none")
					return nil
				}
				fmt.Println()
				writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
				fmt.Fprintf(writer, "GROUP\tCONSUMERS\tPENDING\tLAST DELIVERED\n")
				for _, group := range report.Groups {
					fmt.Fprintf(writer, "%s\t%d\t%d\t%s\n",
						group.Name, group.Consumers, group.Pending, group.LastDeliveredID)
				}
				return writer.Flush()
			})
		},
	}
}
