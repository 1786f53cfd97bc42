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
	"encoding/json"
	"log/slog"
)

// Observer receives notifications about a discovery run.
//
// Description:
//
//	Implementations must not block; they are called inline from the
//	finder. The Result values passed in must be treated as read-only.
type Observer interface {
	// DiscoveryStarted fires once per Handle call.
	DiscoveryStarted(ctx context.Context, class string, methods []string, depth int)

	// StepCompleted fires after each Find step with that step's result.
	StepCompleted(ctx context.Context, class string, depth int, result Result)

	// BreadthCapped fires when a response named more classes than allowed.
	BreadthCapped(ctx context.Context, class string, dropped []string)

	// ResultsFolded fires once the result tree has been folded.
	ResultsFolded(ctx context.Context, root Result, deps *DependencyMap)

	// BundleCombined fires after the final source bundle is assembled.
	BundleCombined(ctx context.Context, class string, size int)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) DiscoveryStarted(context.Context, string, []string, int) {}
func (NopObserver) StepCompleted(context.Context, string, int, Result)      {}
func (NopObserver) BreadthCapped(context.Context, string, []string)         {}
func (NopObserver) ResultsFolded(context.Context, Result, *DependencyMap)   {}
func (NopObserver) BundleCombined(context.Context, string, int)             {}

// LogObserver writes notifications to a structured logger. Result trees
// and dependency maps are logged as JSON at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver returns a LogObserver, using slog.Default when logger is nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) DiscoveryStarted(ctx context.Context, class string, methods []string, depth int) {
	o.Logger.InfoContext(ctx, "discovery started",
		slog.String("class", class),
		slog.Any("methods", methods),
		slog.Int("depth", depth),
	)
}

func (o *LogObserver) StepCompleted(ctx context.Context, class string, depth int, result Result) {
	if e, ok := result.(ErrorResult); ok {
		o.Logger.WarnContext(ctx, "discovery step failed",
			slog.String("class", class),
			slog.Int("depth", depth),
			slog.String("error", e.Message),
		)
		return
	}
	o.Logger.DebugContext(ctx, "discovery step completed",
		slog.String("class", class),
		slog.Int("depth", depth),
		slog.String("result", encode(result)),
	)
}

func (o *LogObserver) BreadthCapped(ctx context.Context, class string, dropped []string) {
	o.Logger.WarnContext(ctx, "discovery breadth capped",
		slog.String("class", class),
		slog.Int("dropped", len(dropped)),
		slog.Any("classes", dropped),
	)
}

func (o *LogObserver) ResultsFolded(ctx context.Context, root Result, deps *DependencyMap) {
	o.Logger.DebugContext(ctx, "results structure", slog.String("results", encode(root)))
	o.Logger.DebugContext(ctx, "combined results",
		slog.Int("classes", deps.Len()),
		slog.String("combined", encode(deps)),
	)
}

func (o *LogObserver) BundleCombined(ctx context.Context, class string, size int) {
	o.Logger.InfoContext(ctx, "discovery bundle ready",
		slog.String("class", class),
		slog.Int("bytes", size),
	)
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) DiscoveryStarted(ctx context.Context, class string, methods []string, depth int) {
	for _, o := range m {
		o.DiscoveryStarted(ctx, class, methods, depth)
	}
}

func (m MultiObserver) StepCompleted(ctx context.Context, class string, depth int, result Result) {
	for _, o := range m {
		o.StepCompleted(ctx, class, depth, result)
	}
}

func (m MultiObserver) BreadthCapped(ctx context.Context, class string, dropped []string) {
	for _, o := range m {
		o.BreadthCapped(ctx, class, dropped)
	}
}

func (m MultiObserver) ResultsFolded(ctx context.Context, root Result, deps *DependencyMap) {
	for _, o := range m {
		o.ResultsFolded(ctx, root, deps)
	}
}

func (m MultiObserver) BundleCombined(ctx context.Context, class string, size int) {
	for _, o := range m {
		o.BundleCombined(ctx, class, size)
	}
}
