// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/aitestgen/services/llm"
	"github.com/AleutianAI/aitestgen/services/testgen/locator"
)

// Locator resolves a class and method subset to source locations.
type Locator interface {
	LocateMethods(ctx context.Context, className string, methods []string) (*locator.MethodLocation, error)
}

// Extractor renders a truncated class stub from a location.
// An empty string means nothing could be extracted.
type Extractor interface {
	ExtractTruncatedClass(loc *locator.MethodLocation) string
}

// Discovery is the outcome of Handle.
type Discovery struct {
	// Root is the unfolded result tree of the root class.
	Root Result

	// Dependencies is Root folded into one class to methods map.
	Dependencies *DependencyMap

	// Bundle holds the original class stub followed by every dependency stub.
	Bundle string
}

// Finder walks class dependencies by asking a model which classes the
// supplied method bodies reach into.
//
// Thread Safety: Safe for concurrent use if the collaborators are.
type Finder struct {
	locator   Locator
	extractor Extractor
	llm       llm.LLMClient
	observer  Observer
	cfg       *Config
}

// NewFinder creates a Finder. A nil cfg uses DefaultConfig and a nil
// observer discards notifications.
func NewFinder(loc Locator, ext Extractor, client llm.LLMClient, cfg *Config, observer Observer) *Finder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	_ = cfg.Validate()
	if observer == nil {
		observer = NopObserver{}
	}
	return &Finder{
		locator:   loc,
		extractor: ext,
		llm:       client,
		observer:  observer,
		cfg:       cfg,
	}
}

// Config returns the finder configuration.
func (f *Finder) Config() Config {
	return *f.cfg
}

// Handle discovers the dependencies of class and returns the combined bundle.
//
// Description:
//
//	Runs Find at the configured depth, folds the tree into a
//	DependencyMap restricted to the root namespace, then re-locates and
//	re-extracts every class to build the bundle. Branch failures never
//	surface as errors; they are inlined as comments in the bundle.
//
// Inputs:
//   - ctx: Cancellation stops discovery between steps.
//   - class: Fully qualified class name; a leading backslash is ignored.
//   - methods: Method names on the class.
//
// Outputs:
//   - *Discovery: The tree, the folded map and the bundle.
//   - error: ErrEmptyClassName, or the context error if cancelled.
func (f *Finder) Handle(ctx context.Context, class string, methods []string) (*Discovery, error) {
	class = normalizeClass(class)
	if class == "" {
		return nil, ErrEmptyClassName
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "discovery.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("discovery.class", class),
		attribute.Int("discovery.methods", len(methods)),
		attribute.Int("discovery.depth", f.cfg.Depth),
	)

	f.observer.DiscoveryStarted(ctx, class, methods, f.cfg.Depth)

	root := f.Find(ctx, class, methods, f.cfg.Depth)
	deps := Fold(root, f.cfg.RootNamespace)
	f.observer.ResultsFolded(ctx, root, deps)

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	bundle := f.CombineTruncatedClasses(ctx, class, methods, deps)
	f.observer.BundleCombined(ctx, class, len(bundle))

	span.SetAttributes(attribute.Int("discovery.classes", deps.Len()))
	recordHandle(ctx, time.Since(start), deps.Len(), IsError(root))

	return &Discovery{Root: root, Dependencies: deps, Bundle: bundle}, nil
}

// Find runs one discovery step for class and recurses into what it finds.
//
// Description:
//
//	depth <= 0 yields an empty Group. A class that cannot be located or
//	extracted, a failed model call and an unparseable response each yield
//	an ErrorResult. Otherwise the Group holds the discovered pairs in
//	response order followed by the successful results of recursing into
//	each pair at depth-1. Pairs outside the root namespace are dropped and
//	at most MaxClassesPerStep pairs are kept.
func (f *Finder) Find(ctx context.Context, class string, methods []string, depth int) Result {
	if depth <= 0 {
		return Group{}
	}
	if err := ctx.Err(); err != nil {
		return ErrorResult{Class: class, Message: err.Error()}
	}

	ctx, span := startStepSpan(ctx, class, depth)
	defer span.End()

	result := f.step(ctx, class, methods, depth)
	if e, ok := result.(ErrorResult); ok {
		span.SetStatus(codes.Error, e.Message)
	}

	f.observer.StepCompleted(ctx, class, depth, result)
	recordStep(ctx, result)
	return result
}

func (f *Finder) step(ctx context.Context, class string, methods []string, depth int) Result {
	loc, err := f.locator.LocateMethods(ctx, class, methods)
	if err != nil {
		return ErrorResult{Class: class, Message: err.Error()}
	}

	stub := f.extractor.ExtractTruncatedClass(loc)
	if stub == "" {
		return ErrorResult{Class: class, Message: msgExtractFailed}
	}

	prompt := BuildPrompt(stub, f.cfg.FrameworkDescription, f.cfg.RootNamespace)
	response, err := f.llm.Generate(ctx, prompt, llm.GenerationParams{
		Model:    f.cfg.Model,
		JSONMode: f.cfg.JSONMode,
	})
	if err != nil {
		return ErrorResult{Class: class, Message: err.Error()}
	}

	pairs, err := ParseDiscoveryResponse(response)
	if err != nil {
		return ErrorResult{Class: class, Message: err.Error()}
	}
	pairs = f.limit(ctx, class, pairs)

	children := make([]Result, 0, 2*len(pairs))
	for _, pair := range pairs {
		children = append(children, pair)
	}
	for _, pair := range pairs {
		sub := f.Find(ctx, pair.Class, pair.Methods, depth-1)
		if !IsError(sub) {
			children = append(children, sub)
		}
	}
	return Group{Children: children}
}

// limit keeps the in-namespace pairs up to the breadth cap.
func (f *Finder) limit(ctx context.Context, class string, pairs []ClassMethods) []ClassMethods {
	kept := make([]ClassMethods, 0, len(pairs))
	var dropped []string
	for _, pair := range pairs {
		if !inNamespace(pair.Class, f.cfg.RootNamespace) {
			continue
		}
		if len(kept) >= f.cfg.MaxClassesPerStep {
			dropped = append(dropped, pair.Class)
			continue
		}
		kept = append(kept, pair)
	}
	if len(dropped) > 0 {
		f.observer.BreadthCapped(ctx, class, dropped)
		recordDropped(ctx, len(dropped))
	}
	return kept
}

// CombineTruncatedClasses builds the source bundle for the original class
// and every class in deps.
//
// Description:
//
//	Every class is located and extracted again so the bundle reflects the
//	files on disk now. A class that fails is replaced by a comment naming
//	it and the failure. The original class is not repeated when deps
//	contains it.
func (f *Finder) CombineTruncatedClasses(ctx context.Context, original string, methods []string, deps *DependencyMap) string {
	var sb strings.Builder

	sb.WriteString("// Original Class\n")
	if stub, err := f.stub(ctx, original, methods); err != nil {
		fmt.Fprintf(&sb, "// Error processing original class %s: %s\n\n", original, err)
	} else {
		sb.WriteString(stub)
		sb.WriteString("\n\n")
	}

	sb.WriteString("// Additional Classes\n")
	if deps == nil {
		return sb.String()
	}
	for _, class := range deps.Classes() {
		if class == original {
			continue
		}
		if stub, err := f.stub(ctx, class, deps.Methods(class)); err != nil {
			fmt.Fprintf(&sb, "// Error processing class %s: %s\n\n", class, err)
		} else {
			sb.WriteString(stub)
			sb.WriteString("\n\n")
		}
	}

	return sb.String()
}

func (f *Finder) stub(ctx context.Context, class string, methods []string) (string, error) {
	loc, err := f.locator.LocateMethods(ctx, class, methods)
	if err != nil {
		return "", err
	}
	stub := f.extractor.ExtractTruncatedClass(loc)
	if stub == "" {
		return "", errors.New(msgExtractFailed)
	}
	return stub, nil
}
