// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	"github.com/stagegate-io/stagegate/audit"
	"github.com/stagegate-io/stagegate/cmd/stagegate-admin/cli"
	"github.com/stagegate-io/stagegate/lib/service"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

func historyCommand() *cli.Command {
	var common service.CommonFlags
	var verify bool
	var archivePath string
	var asJSON bool

	return &cli.Command{
		Name:    "history",
		Summary: "Show a task's audit trail.",
		Description: `Show the audit trail of one task: every gate request and decision in
append order.

With --verify, each entry's digest is recomputed and compared against
the stored one; a mismatch means the trail was edited after the fact.
A tampered trail exits with code 1.

With --archive, the trail is also exported as zstd-compressed JSON
lines, one entry per line, suitable for retention outside the store.`,
		Usage: "stagegate-admin history <task-id> [flags]",
		Examples: []cli.Example{
			{Description: "Show the trail", Command: "stagegate-admin history task-42"},
			{Description: "Verify digests", Command: "stagegate-admin history task-42 --verify"},
			{Description: "Export for retention", Command: "stagegate-admin history task-42 --archive task-42.jsonl.zst"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
			service.RegisterCommonFlags(flagSet, &common)
			flagSet.BoolVar(&verify, "verify", false, "recompute and check entry digests")
			flagSet.StringVar(&archivePath, "archive", "", "write the trail to this file as zstd JSON lines")
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one task id\n\nusage: stagegate-admin history <task-id>")
			}
			taskID := args[0]

			return withRuntime(common, func(ctx context.Context, runtime *service.Runtime, tn tenant.Tenant) error {
				entries, err := runtime.Audit.TaskHistory(ctx, tn, taskID)
				if err != nil {
					return err
				}

				if archivePath != "" {
					if err := writeArchive(archivePath, entries); err != nil {
						return err
					}
					fmt.Fprintf(os.Stderr, "archived %d entries to %s\n", len(entries), archivePath)
				}

				var invalid map[int]bool
				if verify {
					result, err := runtime.Audit.VerifyHistory(ctx, tn, taskID)
					if err != nil {
						return err
					}
					invalid = make(map[int]bool, len(result.Invalid))
					for _, index := range result.Invalid {
						invalid[index] = true
					}
				}

				if asJSON {
					return cli.WriteJSON(os.Stdout, entries)
				}

				if len(entries) == 0 {
					fmt.Fprintf(os.Stderr, "no audit history for task %q\n", taskID)
					return nil
				}

				writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
				if verify {
					fmt.Fprintf(writer, "KIND\tREQUEST\tACTOR\tOUTCOME\tTIMESTAMP\tDIGEST\n")
				} else {
					fmt.Fprintf(writer, "KIND\tREQUEST\tACTOR\tOUTCOME\tTIMESTAMP\n")
				}
				for i, entry := range entries {
					outcome := entry.Outcome
					if outcome == "" {
						outcome = "-"
					}
					timestamp := entry.Timestamp.UTC().Format(time.RFC3339)
					if verify {
						verdict := "ok"
						if invalid[i] {
							verdict = "INVALID"
						}
						fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
							entry.Kind, entry.RequestID, entry.Actor, outcome, timestamp, verdict)
					} else {
						fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
							entry.Kind, entry.RequestID, entry.Actor, outcome, timestamp)
					}
				}
				if err := writer.Flush(); err != nil {
					return err
				}

				if verify {
					if len(invalid) > 0 {
						fmt.Fprintf(os.Stderr, "%d of %d entries failed digest verification\n", len(invalid), len(entries))
						return &cli.ExitError{Code: 1}
					}
					fmt.Fprintf(os.Stderr, "all %d entries verified\n", len(entries))
				}
				return nil
			})
		},
	}
}

// writeArchive exports entries to path as zstd-compressed JSON
// lines. The file is complete and closed on success; on any error
// the partial file is removed.
func writeArchive(path string, entries []audit.Entry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	fail := func(err error) error {
		file.Close()
		os.Remove(path)
		return err
	}

	encoder, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fail(fmt.Errorf("creating zstd encoder: %w", err))
	}

	lines := json.NewEncoder(encoder)
	for _, entry := range entries {
		if err := lines.Encode(entry); err != nil {
			encoder.Close()
			return fail(fmt.Errorf("encoding archive entry: %w", err))
		}
	}

	if err := encoder.Close(); err != nil {
		return fail(fmt.Errorf("finishing archive: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}
