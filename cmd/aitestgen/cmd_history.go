// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aitestgen/services/testgen/history"
)

var errHistoryDisabled = errors.New("history is disabled (history.enabled: false)")

func newHistoryCmd(env *environment, root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and inspect past generation runs",
	}

	var limit int
	var format string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return execute(env, root, appNeeds{history: true}, func(ctx context.Context, a *app) error {
				if a.history == nil {
					return errHistoryDisabled
				}
				runs, err := a.history.List(ctx, limit)
				if err != nil {
					return err
				}
				if format != formatText {
					return writeStructured(a.printer.Out(), format, runs)
				}
				lines := make([]string, 0, len(runs))
				for _, run := range runs {
					lines = append(lines, fmt.Sprintf("%s  %s  %s  %s",
						run.ID, run.CreatedAt().Format(time.DateTime), run.ClassName, run.OutputPath))
				}
				a.printer.List("Runs", lines)
				return nil
			})(cmd, args)
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show (0 for all)")
	listCmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")

	var showFormat string
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(showFormat); err != nil {
				return err
			}
			return execute(env, root, appNeeds{history: true}, func(ctx context.Context, a *app) error {
				if a.history == nil {
					return errHistoryDisabled
				}
				run, err := a.history.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if showFormat != formatText {
					return writeStructured(a.printer.Out(), showFormat, run)
				}
				printRun(a, run)
				return nil
			})(cmd, args)
		},
	}
	showCmd.Flags().StringVarP(&showFormat, "format", "f", formatText, "output format: text, json or yaml")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func printRun(a *app, run *history.Run) {
	a.printer.Title(run.ClassName)
	a.printer.KeyValue("ID", run.ID)
	a.printer.KeyValue("Created", run.CreatedAt().Format(time.RFC3339))
	a.printer.KeyValue("Duration", run.Duration())
	a.printer.KeyValue("Output", fmt.Sprintf("%s:%s", run.Disk, run.OutputPath))
	a.printer.KeyValue("Discovery model", run.DiscoveryModel)
	a.printer.KeyValue("Generation model", run.GenerationModel)
	a.printer.List("Methods", run.Methods)
	a.printer.Map("Dependencies", run.Dependencies)
}
