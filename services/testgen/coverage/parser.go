// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coverage

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/aitestgen/services/testgen/storage"
)

// coveredByPattern captures the test class of a covered/@by value. The
// match is greedy so only the last "::" separates the test method.
var coveredByPattern = regexp.MustCompile(`^(.*)::`)

// testPrefix marks Pest test classes in covered/@by values.
const testPrefix = `P\`

// Parser reads coverage reports through named storage disks.
type Parser struct {
	disks  *storage.Manager
	logger *slog.Logger
}

// NewParser creates a Parser. disks may be nil when only ParseBytes and
// ParseReader are used.
func NewParser(disks *storage.Manager, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{disks: disks, logger: logger}
}

// Parse reads the report at path on the named disk and parses it.
//
// Inputs:
//   - ctx: Bounds the storage read.
//   - disk: Disk name; "" selects the default disk.
//   - path: Report path relative to the disk root.
//
// Outputs:
//   - *Report: The extracted information.
//   - error: ErrReadReport or ErrMalformedReport.
func (p *Parser) Parse(ctx context.Context, disk, path string) (*Report, error) {
	if p.disks == nil {
		return nil, fmt.Errorf("%w: no storage configured", ErrReadReport)
	}
	d, err := p.disks.Disk(disk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadReport, err)
	}
	data, err := d.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadReport, path, err)
	}

	report, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("coverage report parsed",
		slog.String("disk", d.Name()),
		slog.String("path", path),
		slog.String("class", report.ClassName),
		slog.Float64("coverage", report.CoveragePercentage),
	)
	return report, nil
}

// ParseBytes parses a report held in memory.
func ParseBytes(data []byte) (*Report, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader parses a report from r.
//
// Description:
//
//	The document is streamed once. Paths are matched on namespaced
//	elements only:
//	  - file/totals/lines/@percent of the first file (0 if absent)
//	  - file/class/@name and file/class/namespace/@name of the first class
//	  - every file/class/method whose @coverage is below 100
//	  - every covered/@by below file/coverage/line, reduced to its test class
//
// Outputs:
//   - *Report: The extracted information. Never nil on success.
//   - error: ErrMalformedReport if the XML is not well formed or empty.
func ParseReader(r io.Reader) (*Report, error) {
	dec := xml.NewDecoder(r)
	report := &Report{}

	var (
		stack       []string
		seenRoot    bool
		havePercent bool
		haveClass   bool
		haveNS      bool
		suites      = make(map[string]struct{})
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			seenRoot = true
			name := ""
			if t.Name.Space == Namespace {
				name = t.Name.Local
			}
			stack = append(stack, name)

			switch {
			case name == "lines" && !havePercent && endsWith(stack, "file", "totals", "lines"):
				havePercent = true
				report.CoveragePercentage = parseFloat(attr(t, "percent"))

			case name == "class" && !haveClass && endsWith(stack, "file", "class"):
				haveClass = true
				report.ClassName = attr(t, "name")

			case name == "namespace" && !haveNS && endsWith(stack, "file", "class", "namespace"):
				haveNS = true
				report.Namespace = attr(t, "name")

			case name == "method" && endsWith(stack, "file", "class", "method"):
				if parseFloat(attr(t, "coverage")) < fullCoverage {
					report.MethodsWithoutCoverage = append(report.MethodsWithoutCoverage, attr(t, "name"))
				}

			case name == "covered" && within(stack, "file", "coverage", "line"):
				suite, ok := testSuite(attr(t, "by"))
				if !ok {
					break
				}
				if _, dup := suites[suite]; !dup {
					suites[suite] = struct{}{}
					report.TestSuites = append(report.TestSuites, suite)
				}
			}

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !seenRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedReport)
	}
	return report, nil
}

// testSuite reduces a covered/@by value such as
// P\Tests\Feature\FooTest::it_works to Tests\Feature\FooTest.
func testSuite(coveredBy string) (string, bool) {
	m := coveredByPattern.FindStringSubmatch(coveredBy)
	if m == nil {
		return "", false
	}
	suite := strings.TrimPrefix(m[1], testPrefix)
	for strings.Contains(suite, `\\`) {
		suite = strings.ReplaceAll(suite, `\\`, `\`)
	}
	return suite, true
}

// endsWith reports whether the innermost elements of stack are names.
func endsWith(stack []string, names ...string) bool {
	if len(stack) < len(names) {
		return false
	}
	tail := stack[len(stack)-len(names):]
	for i, n := range names {
		if tail[i] != n {
			return false
		}
	}
	return true
}

// within reports whether names appear consecutively anywhere above the
// innermost element.
func within(stack []string, names ...string) bool {
	parents := stack[:len(stack)-1]
	for end := len(parents); end >= len(names); end-- {
		if endsWith(parents[:end], names...) {
			return true
		}
	}
	return false
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name && (a.Name.Space == "" || a.Name.Space == Namespace) {
			return a.Value
		}
	}
	return ""
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
