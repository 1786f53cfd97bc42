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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aitestgen/cmd/aitestgen/config"
	"github.com/AleutianAI/aitestgen/services/testgen/discovery"
	"github.com/AleutianAI/aitestgen/services/testgen/locator"
)

type discoverFlags struct {
	model  string
	depth  int
	format string
	tree   bool
}

// discoverReport is the structured form of a discover run.
type discoverReport struct {
	Class         string                   `json:"class" yaml:"class"`
	Methods       []string                 `json:"methods" yaml:"methods"`
	Dependencies  *discovery.DependencyMap `json:"dependencies" yaml:"-"`
	DependencyMap map[string][]string      `json:"-" yaml:"dependencies"`
	Results       discovery.Result         `json:"results,omitempty" yaml:"-"`
	Bundle        string                   `json:"bundle" yaml:"bundle"`
}

func newDiscoverCmd(env *environment, root *rootFlags) *cobra.Command {
	flags := &discoverFlags{depth: -1}

	cmd := &cobra.Command{
		Use:   "discover <class> <method...>",
		Short: "Show the dependency bundle that generation would send",
		Long: `Runs dependency discovery only and prints the combined source bundle
and the classes and methods it found. No test file is written.`,
		Args: cobra.MinimumNArgs(2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(flags.format); err != nil {
			return err
		}
		needs := appNeeds{llm: true, configure: flags.apply}
		return execute(env, root, needs, func(ctx context.Context, a *app) error {
			return runDiscover(ctx, a, flags, args[0], args[1:])
		})(cmd, args)
	}

	f := cmd.Flags()
	f.StringVar(&flags.model, "model", "", "dependency discovery model")
	f.IntVar(&flags.depth, "depth", -1, "discovery depth")
	f.StringVarP(&flags.format, "format", "f", formatText, "output format: text, json or yaml")
	f.BoolVar(&flags.tree, "tree", false, "include the unfolded result tree in json output")
	return cmd
}

func (f *discoverFlags) apply(cfg *config.AitestgenConfig) {
	if f.model != "" {
		cfg.Discovery.Model = f.model
	}
	if f.depth >= 0 {
		cfg.Discovery.Depth = f.depth
	}
}

func runDiscover(ctx context.Context, a *app, flags *discoverFlags, className string, methods []string) error {
	finder := a.finder(nil)

	var found *discovery.Discovery
	err := a.printer.Run(fmt.Sprintf("Discovering dependencies of %s", className), func() error {
		var err error
		found, err = finder.Handle(ctx, className, methods)
		return err
	})
	if err != nil {
		return err
	}

	if flags.format != formatText {
		report := discoverReport{
			Class:         className,
			Methods:       methods,
			Dependencies:  found.Dependencies,
			DependencyMap: found.Dependencies.ToMap(),
			Bundle:        found.Bundle,
		}
		if flags.tree {
			report.Results = found.Root
		}
		return writeStructured(a.printer.Out(), flags.format, report)
	}

	a.printer.Title("Dependencies")
	if found.Dependencies.Len() == 0 {
		a.printer.Info("none found")
	}
	for _, entry := range found.Dependencies.Entries() {
		a.printer.List(entry.Class, entry.Methods)
	}
	a.printer.Title("Bundle")
	a.printer.Code(found.Bundle)
	return nil
}

type locateFlags struct {
	format string
	stub   bool
}

func newLocateCmd(env *environment, root *rootFlags) *cobra.Command {
	flags := &locateFlags{}

	cmd := &cobra.Command{
		Use:   "locate <class> <method...>",
		Short: "Show where a class's methods are declared",
		Long: `Resolves the class and reports the line range of each requested method,
grouped by the class, its traits and its ancestors. Methods that cannot be
found are left out.`,
		Args: cobra.MinimumNArgs(2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(flags.format); err != nil {
			return err
		}
		return execute(env, root, appNeeds{}, func(ctx context.Context, a *app) error {
			return runLocate(ctx, a, flags, args[0], args[1:])
		})(cmd, args)
	}

	f := cmd.Flags()
	f.StringVarP(&flags.format, "format", "f", formatText, "output format: text, json or yaml")
	f.BoolVar(&flags.stub, "stub", false, "print the truncated class source")
	return cmd
}

func runLocate(ctx context.Context, a *app, flags *locateFlags, className string, methods []string) error {
	loc, err := a.locator.LocateMethods(ctx, className, methods)
	if err != nil {
		return err
	}

	if flags.format != formatText {
		if err := writeStructured(a.printer.Out(), flags.format, loc); err != nil {
			return err
		}
	} else {
		a.printer.Title(loc.ClassName)
		a.printer.KeyValue("File", loc.FilePath)
		a.printer.KeyValue("Declared at line", loc.ClassStartLine)
		a.printer.List("Methods", methodLines(loc.Methods))
		for _, group := range loc.Traits {
			a.printer.List(fmt.Sprintf("From %s %s (%s)", group.Kind, group.Name, group.FilePath), methodLines(group.Methods))
		}
		if missing := missingMethods(loc, methods); len(missing) > 0 {
			a.printer.Warning("not found: " + strings.Join(missing, ", "))
		}
	}

	if flags.stub {
		writeStub(a.printer.Out(), a.extractor.ExtractTruncatedClass(loc))
	}
	return nil
}

func methodLines(methods []locator.MethodInfo) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, fmt.Sprintf("%s (lines %d-%d)", m.Name, m.StartLine, m.EndLine))
	}
	return out
}

func missingMethods(loc *locator.MethodLocation, requested []string) []string {
	found := make(map[string]bool, loc.MethodCount())
	for _, m := range loc.Methods {
		found[strings.ToLower(m.Name)] = true
	}
	for _, g := range loc.Traits {
		for _, m := range g.Methods {
			found[strings.ToLower(m.Name)] = true
		}
	}
	var missing []string
	for _, name := range requested {
		if !found[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}
	return missing
}

func writeStub(w io.Writer, stub string) {
	fmt.Fprintln(w, stub)
}
