// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generator turns a class and a method list into a generated test
// file.
//
// A run discovers the class's dependencies, sends the combined source to a
// model with a fixed house-style prompt and stores the raw response under
// a timestamped name. The response is not validated.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/aitestgen/services/llm"
	"github.com/AleutianAI/aitestgen/services/testgen/discovery"
	"github.com/AleutianAI/aitestgen/services/testgen/history"
	"github.com/AleutianAI/aitestgen/services/testgen/phpast"
	"github.com/AleutianAI/aitestgen/services/testgen/storage"
)

// timestampLayout renders YYYYMMDDHHMMSS.
const timestampLayout = "20060102150405"

// Finder produces the source bundle for a class.
type Finder interface {
	Handle(ctx context.Context, class string, methods []string) (*discovery.Discovery, error)
}

// Recorder stores a finished run.
type Recorder interface {
	Record(ctx context.Context, run *history.Run) error
}

// Output describes one generated test file.
type Output struct {
	ID           string
	Disk         string
	Path         string
	Location     string
	Content      string
	Bundle       string
	Dependencies *discovery.DependencyMap
	Duration     time.Duration
}

// Generator runs discovery, prompts the model and stores the test file.
//
// Thread Safety: Safe for concurrent use if the collaborators are.
type Generator struct {
	finder         Finder
	llm            llm.LLMClient
	disks          *storage.Manager
	history        Recorder
	clock          func() time.Time
	logger         *slog.Logger
	cfg            *Config
	discoveryModel string
}

// GeneratorOption configures optional Generator collaborators.
type GeneratorOption func(*Generator)

// WithHistory records every successful run in rec.
func WithHistory(rec Recorder) GeneratorOption {
	return func(g *Generator) {
		g.history = rec
	}
}

// WithClock replaces time.Now for file naming.
func WithClock(clock func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithDiscoveryModel names the discovery model in history records.
func WithDiscoveryModel(model string) GeneratorOption {
	return func(g *Generator) {
		g.discoveryModel = model
	}
}

// New creates a Generator. A nil cfg uses DefaultConfig.
func New(finder Finder, client llm.LLMClient, disks *storage.Manager, cfg *Config, opts ...GeneratorOption) *Generator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	_ = cfg.Validate()

	g := &Generator{
		finder: finder,
		llm:    client,
		disks:  disks,
		clock:  time.Now,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Generate writes a test file for the given class and methods.
//
// Description:
//
//	Discovery failures inside the dependency walk are inlined into the
//	bundle and never stop the run. The model's response is stored as is
//	at <OutputDir>/<ShortName><YYYYMMDDHHMMSS>Test.<Extension>. Recording
//	the run in history is best effort.
//
// Inputs:
//   - ctx: Cancellation aborts discovery and the model call.
//   - className: Fully qualified class name.
//   - methods: Methods to cover. Must not be empty.
//
// Outputs:
//   - *Output: The stored file and the material it was built from.
//   - error: ErrEmptyClassName, ErrNoMethods, ErrDiscoveryFailed,
//     ErrLLMGenerationFailed or ErrStorageWrite.
func (g *Generator) Generate(ctx context.Context, className string, methods []string) (*Output, error) {
	className = phpast.NormalizeName(className)
	if className == "" {
		return nil, ErrEmptyClassName
	}
	methods = compact(methods)
	if len(methods) == 0 {
		return nil, ErrNoMethods
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "generator.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("generator.class", className),
		attribute.Int("generator.methods", len(methods)),
		attribute.String("generator.model", g.cfg.Model),
	)

	fail := func(outcome string, err error) (*Output, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		recordGenerate(ctx, time.Since(start), 0, outcome)
		g.logger.Error("test generation failed",
			slog.String("class", className),
			slog.String("stage", outcome),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	disk, err := g.disks.Disk(g.cfg.Disk)
	if err != nil {
		return fail("storage", fmt.Errorf("%w: %v", ErrStorageWrite, err))
	}

	found, err := g.finder.Handle(ctx, className, methods)
	if err != nil {
		return fail("discovery", fmt.Errorf("%w: %v", ErrDiscoveryFailed, err))
	}

	prompt := BuildPrompt(className, methods, found.Bundle, g.cfg)
	params := llm.GenerationParams{Model: g.cfg.Model}
	if g.cfg.MaxTokens > 0 {
		maxTokens := g.cfg.MaxTokens
		params.MaxTokens = &maxTokens
	}
	content, err := g.llm.Generate(ctx, prompt, params)
	if err != nil {
		return fail("llm", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err))
	}

	filePath := path.Join(g.cfg.OutputDir, Filename(className, g.clock(), g.cfg.Extension))
	if err := disk.Put(ctx, filePath, []byte(content)); err != nil {
		return fail("storage", fmt.Errorf("%w: %s: %v", ErrStorageWrite, filePath, err))
	}

	out := &Output{
		ID:           uuid.NewString(),
		Disk:         disk.Name(),
		Path:         filePath,
		Location:     disk.Location(filePath),
		Content:      content,
		Bundle:       found.Bundle,
		Dependencies: found.Dependencies,
		Duration:     time.Since(start),
	}

	g.record(ctx, className, methods, out)
	recordGenerate(ctx, out.Duration, len(content), "ok")
	span.SetAttributes(attribute.String("generator.path", filePath))

	g.logger.Info("test generated",
		slog.String("class", className),
		slog.String("path", out.Location),
		slog.Int("dependencies", found.Dependencies.Len()),
		slog.Duration("duration", out.Duration),
	)
	return out, nil
}

func (g *Generator) record(ctx context.Context, className string, methods []string, out *Output) {
	if g.history == nil {
		return
	}
	run := &history.Run{
		ID:              out.ID,
		ClassName:       className,
		Methods:         methods,
		OutputPath:      out.Path,
		Disk:            out.Disk,
		Dependencies:    out.Dependencies.ToMap(),
		DiscoveryModel:  g.discoveryModel,
		GenerationModel: g.cfg.Model,
		DurationMilli:   out.Duration.Milliseconds(),
	}
	if err := g.history.Record(ctx, run); err != nil && !errors.Is(err, context.Canceled) {
		g.logger.Warn("failed to record generation history",
			slog.String("id", out.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Filename returns <ShortName><YYYYMMDDHHMMSS>Test.<ext> for className.
func Filename(className string, at time.Time, ext string) string {
	return phpast.ShortName(className) + at.Format(timestampLayout) + "Test." + strings.TrimPrefix(ext, ".")
}

func compact(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
