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
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aitestgen/pkg/ux"
)

// environment holds what the commands take from the process, so tests can
// substitute writers and the model client.
type environment struct {
	out    io.Writer
	errOut io.Writer
	newLLM llmFactory
}

func defaultEnvironment() *environment {
	return &environment{
		out:    os.Stdout,
		errOut: os.Stderr,
		newLLM: buildLLM,
	}
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	configPath string
	projectDir string
	logLevel   string
	jsonLogs   bool
	plain      bool
}

func newRootCmd(env *environment) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "aitestgen",
		Short: "Generate PHP unit tests with a language model",
		Long: `aitestgen locates the methods you want tested, discovers the project
classes they depend on, and asks a model to write a PEST test file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(env.out)
	rootCmd.SetErr(env.errOut)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.aitestgen/config.yaml)")
	pf.StringVarP(&flags.projectDir, "project", "p", "", "PHP project root (overrides project.root)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&flags.jsonLogs, "json-logs", false, "write logs as JSON")
	pf.BoolVar(&flags.plain, "plain", false, "disable colors and spinners")

	rootCmd.AddCommand(
		newGenerateCmd(env, flags),
		newDiscoverCmd(env, flags),
		newLocateCmd(env, flags),
		newCoverageCmd(env, flags),
		newHistoryCmd(env, flags),
		newInitCmd(env, flags),
	)
	return rootCmd
}

// execute wraps a RunE body with signal handling, app setup and error
// printing.
func execute(env *environment, flags *rootFlags, needs appNeeds, fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		printer := newPrinter(env, flags)
		a, err := newApp(ctx, env, flags, needs)
		if err != nil {
			printer.Error(err.Error())
			return err
		}
		defer a.Close()

		if err := fn(ctx, a); err != nil {
			if !errors.Is(err, context.Canceled) {
				a.printer.Error(err.Error())
			}
			return err
		}
		return nil
	}
}

func newPrinter(env *environment, flags *rootFlags) *ux.Printer {
	if flags.plain {
		return ux.NewPlainPrinter(env.out, env.errOut)
	}
	return ux.NewPrinter(env.out, env.errOut)
}
