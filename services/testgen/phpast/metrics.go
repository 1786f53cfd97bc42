// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

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
	tracer = otel.Tracer("aitestgen.phpast")
	meter  = otel.Meter("aitestgen.phpast")
)

var (
	parseLatency  metric.Float64Histogram
	parseTotal    metric.Int64Counter
	typesCaptured metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"phpast_parse_duration_seconds",
			metric.WithDescription("Duration of PHP parse operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"phpast_parse_total",
			metric.WithDescription("Total number of PHP parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		typesCaptured, err = meter.Int64Histogram(
			"phpast_types_per_file",
			metric.WithDescription("Number of type declarations found per file"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordParseMetrics(ctx context.Context, duration time.Duration, typeCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)
	if success {
		typesCaptured.Record(ctx, int64(typeCount))
	}
}

func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "phpast.Parse",
		trace.WithAttributes(
			attribute.String("phpast.file", filePath),
			attribute.Int("phpast.content_size", contentSize),
		),
	)
}
