// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coverage reads PHPUnit XML coverage reports.
//
// Only elements in the https://schema.phpunit.de/coverage/1.0 namespace
// are considered. A report yields the line coverage of the first file, the
// first class and its namespace, every method below full coverage and the
// test classes that covered at least one line.
package coverage

// Namespace is the XML namespace of PHPUnit coverage reports.
const Namespace = "https://schema.phpunit.de/coverage/1.0"

// fullCoverage is the method coverage at or above which a method is covered.
const fullCoverage = 100.0

// Report is the information extracted from one coverage document.
type Report struct {
	CoveragePercentage     float64  `json:"coverage_percentage" yaml:"coverage_percentage"`
	ClassName              string   `json:"class_name" yaml:"class_name"`
	Namespace              string   `json:"namespace" yaml:"namespace"`
	TestSuites             []string `json:"test_suites" yaml:"test_suites"`
	MethodsWithoutCoverage []string `json:"methods_without_coverage" yaml:"methods_without_coverage"`
}

// UsefulInformation returns every field as one flat map.
func (r *Report) UsefulInformation() map[string]any {
	return map[string]any{
		"coverage_percentage":      r.CoveragePercentage,
		"class_name":               r.ClassName,
		"namespace":                r.Namespace,
		"test_suites":              nonNil(r.TestSuites),
		"methods_without_coverage": nonNil(r.MethodsWithoutCoverage),
	}
}

// FullyCovered reports whether every method is at full coverage.
func (r *Report) FullyCovered() bool {
	return len(r.MethodsWithoutCoverage) == 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
