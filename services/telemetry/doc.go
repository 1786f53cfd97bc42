// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires the OpenTelemetry SDK for the aitestgen CLI.
//
// Each service package creates its own tracer and meter through the global
// otel providers. Until Init runs those providers are no-ops, so library
// users that never call Init pay nothing.
//
// Exporters:
//
//	Traces:  "otlp" (gRPC), "stdout", "none"
//	Metrics: "prometheus", "stdout", "none"
//
// The prometheus exporter uses a private registry; MetricsHandler exposes it
// and Serve publishes it on an address for long-running commands such as
// "coverage --watch".
package telemetry
