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

	"github.com/AleutianAI/aitestgen/cmd/aitestgen/config"
	"github.com/AleutianAI/aitestgen/pkg/ux"
	"github.com/AleutianAI/aitestgen/services/testgen/generator"
)

// errNoMethods is returned when no methods were given and none can be
// picked interactively.
var errNoMethods = errors.New("no methods given; pass them as arguments or run in a terminal to pick them")

type generateFlags struct {
	model          string
	discoveryModel string
	depth          int
	outputDir      string
	disk           string
	print          bool
}

func newGenerateCmd(env *environment, root *rootFlags) *cobra.Command {
	flags := &generateFlags{depth: -1}

	cmd := &cobra.Command{
		Use:   "generate <class> [method...]",
		Short: "Generate a test file for methods of a class",
		Long: `Locates the methods, discovers the project classes they use, and writes
the model's test file to <output-dir>/<Class><YYYYMMDDHHMMSS>Test.php on the
configured disk. Without methods, a terminal session offers a picker.`,
		Example: `  aitestgen generate 'App\Models\User' getFullName isAdmin
  aitestgen generate 'App\Services\Billing' --depth 1 --print`,
		Args: cobra.MinimumNArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		needs := appNeeds{llm: true, history: true, configure: flags.apply}
		return execute(env, root, needs, func(ctx context.Context, a *app) error {
			return runGenerate(ctx, a, root, args[0], args[1:], flags.print)
		})(cmd, args)
	}

	f := cmd.Flags()
	f.StringVar(&flags.model, "model", "", "generation model")
	f.StringVar(&flags.discoveryModel, "discovery-model", "", "dependency discovery model")
	f.IntVar(&flags.depth, "depth", -1, "discovery depth (0 disables discovery)")
	f.StringVar(&flags.outputDir, "output-dir", "", "directory on the disk for test files")
	f.StringVar(&flags.disk, "disk", "", "disk to write to: local, base_path or gcs")
	f.BoolVar(&flags.print, "print", false, "also print the generated test")
	return cmd
}

func (f *generateFlags) apply(cfg *config.AitestgenConfig) {
	if f.model != "" {
		cfg.Generation.Model = f.model
	}
	if f.discoveryModel != "" {
		cfg.Discovery.Model = f.discoveryModel
	}
	if f.depth >= 0 {
		cfg.Discovery.Depth = f.depth
	}
	if f.outputDir != "" {
		cfg.Generation.OutputDir = f.outputDir
	}
	if f.disk != "" {
		cfg.Generation.Disk = f.disk
	}
}

func runGenerate(ctx context.Context, a *app, root *rootFlags, className string, methods []string, showContent bool) error {
	if len(methods) == 0 {
		picked, err := pickMethods(ctx, a, root, className)
		if err != nil {
			return err
		}
		methods = picked
	}

	var out *generator.Output
	gen := a.generator()
	err := a.printer.Run(fmt.Sprintf("Generating tests for %s", className), func() error {
		var err error
		out, err = gen.Generate(ctx, className, methods)
		return err
	})
	if err != nil {
		return err
	}

	a.printer.Success(fmt.Sprintf("Test written to %s", out.Location))
	a.printer.KeyValue("Disk", out.Disk)
	a.printer.KeyValue("Duration", out.Duration.Round(time.Millisecond))
	a.printer.Map("Dependencies", out.Dependencies.ToMap())
	if showContent {
		a.printer.Code(out.Content)
	}
	return nil
}

// pickMethods offers the class's methods in a multi-select when the
// session is interactive.
func pickMethods(ctx context.Context, a *app, root *rootFlags, className string) ([]string, error) {
	if root.plain || !ux.Interactive() {
		return nil, errNoMethods
	}
	options, err := a.locator.ClassMethods(ctx, className)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%s declares no methods", className)
	}
	return ux.SelectMethods(className, options)
}
