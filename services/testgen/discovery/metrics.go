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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("aitestgen.discovery")
	meter  = otel.Meter("aitestgen.discovery")
)

var (
	handleLatency metric.Float64Histogram
	stepsTotal    metric.Int64Counter
	droppedTotal  metric.Int64Counter
	classesPerRun metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		handleLatency, err = meter.Float64Histogram(
			"discovery_handle_duration_seconds",
			metric.WithDescription("Duration of full dependency discovery runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		stepsTotal, err = meter.Int64Counter(
			"discovery_steps_total",
			metric.WithDescription("Total number of discovery steps by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		droppedTotal, err = meter.Int64Counter(
			"discovery_breadth_dropped_total",
			metric.WithDescription("Classes dropped by the per-step breadth cap"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		classesPerRun, err = meter.Int64Histogram(
			"discovery_classes_per_run",
			metric.WithDescription("Number of dependency classes found per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordStep(ctx context.Context, result Result) {
	if err := initMetrics(); err != nil {
		return
	}
	outcome := "ok"
	if IsError(result) {
		outcome = "error"
	}
	stepsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordDropped(ctx context.Context, n int) {
	if err := initMetrics(); err != nil {
		return
	}
	droppedTotal.Add(ctx, int64(n))
}

func recordHandle(ctx context.Context, duration time.Duration, classes int, rootFailed bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("root_failed", rootFailed))
	handleLatency.Record(ctx, duration.Seconds(), attrs)
	classesPerRun.Record(ctx, int64(classes), attrs)
}

func startStepSpan(ctx context.Context, class string, depth int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "discovery.Find",
		trace.WithAttributes(
			attribute.String("discovery.class", class),
			attribute.Int("discovery.depth", depth),
		),
	)
}
