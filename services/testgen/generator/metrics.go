// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("aitestgen.generator")
	meter  = otel.Meter("aitestgen.generator")
)

var (
	generateLatency metric.Float64Histogram
	generateTotal   metric.Int64Counter
	outputBytes     metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		generateLatency, err = meter.Float64Histogram(
			"generator_generate_duration_seconds",
			metric.WithDescription("Duration of test generation runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		generateTotal, err = meter.Int64Counter(
			"generator_generate_total",
			metric.WithDescription("Total number of test generation runs by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		outputBytes, err = meter.Int64Histogram(
			"generator_output_bytes",
			metric.WithDescription("Size of generated test files"),
			metric.WithUnit("By"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordGenerate(ctx context.Context, duration time.Duration, size int, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	generateLatency.Record(ctx, duration.Seconds(), attrs)
	generateTotal.Add(ctx, 1, attrs)
	if outcome == "ok" {
		outputBytes.Record(ctx, int64(size))
	}
}
