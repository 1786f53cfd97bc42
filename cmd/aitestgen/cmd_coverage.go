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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aitestgen/services/testgen/coverage"
	"github.com/AleutianAI/aitestgen/services/testgen/storage"
)

var errWatchNeedsLocalDisk = errors.New("--watch needs a local disk")

type coverageFlags struct {
	disk   string
	format string
	watch  bool
}

func newCoverageCmd(env *environment, root *rootFlags) *cobra.Command {
	flags := &coverageFlags{}

	cmd := &cobra.Command{
		Use:   "coverage <path>",
		Short: "Summarize a PHPUnit XML coverage report",
		Long: `Reads a PHPUnit XML coverage report (schema.phpunit.de/coverage/1.0) and
prints the line coverage, the class, the test suites that cover it and the
methods that are not fully covered. With --watch the report is re-read
whenever it changes.`,
		Example: `  aitestgen coverage coverage.xml
  aitestgen coverage build/coverage.xml --format json
  aitestgen coverage coverage.xml --watch`,
		Args: cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(flags.format); err != nil {
			return err
		}
		return execute(env, root, appNeeds{}, func(ctx context.Context, a *app) error {
			if flags.watch {
				return runCoverageWatch(ctx, a, flags, args[0])
			}
			report, err := a.coverageParser().Parse(ctx, flags.disk, args[0])
			if err != nil {
				return err
			}
			return printReport(a, flags.format, report)
		})(cmd, args)
	}

	f := cmd.Flags()
	f.StringVar(&flags.disk, "disk", storage.DiskBasePath, "disk the report is read from")
	f.StringVarP(&flags.format, "format", "f", formatText, "output format: text, json or yaml")
	f.BoolVarP(&flags.watch, "watch", "w", false, "re-read the report whenever it changes")
	return cmd
}

func runCoverageWatch(ctx context.Context, a *app, flags *coverageFlags, path string) error {
	disk, err := a.disks.Disk(flags.disk)
	if err != nil {
		return err
	}
	if _, ok := disk.(*storage.LocalDisk); !ok {
		return fmt.Errorf("%w: %q is not", errWatchNeedsLocalDisk, disk.Name())
	}

	if a.telemetry.MetricsHandler() != nil && a.cfg.Telemetry.MetricsAddr != "" {
		go func() {
			if err := a.telemetry.Serve(ctx, ""); err != nil {
				a.logger.Warn("metrics endpoint stopped", slog.String("error", err.Error()))
			}
		}()
	}

	location := disk.Location(path)
	if flags.format == formatText {
		a.printer.Info(fmt.Sprintf("Watching %s (ctrl+c to stop)", location))
	} else {
		a.logger.Info("watching coverage report", slog.String("location", location))
	}
	return a.coverageParser().Watch(ctx, location, func(report *coverage.Report, err error) {
		if err != nil {
			a.printer.Warning(err.Error())
			return
		}
		if err := printReport(a, flags.format, report); err != nil {
			a.printer.Warning(err.Error())
		}
	}, nil)
}

func printReport(a *app, format string, report *coverage.Report) error {
	if format != formatText {
		return writeStructured(a.printer.Out(), format, report)
	}

	title := report.ClassName
	if title == "" {
		title = "Coverage"
	}
	a.printer.Title(title)
	a.printer.KeyValue("Coverage", fmt.Sprintf("%.2f%%", report.CoveragePercentage))
	a.printer.KeyValue("Class", report.ClassName)
	a.printer.KeyValue("Namespace", report.Namespace)
	a.printer.List("Test suites", report.TestSuites)
	a.printer.List("Methods without full coverage", report.MethodsWithoutCoverage)
	if report.FullyCovered() {
		a.printer.Success("fully covered")
	}
	return nil
}
