// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extractor rebuilds a truncated class from located methods.
package extractor

import (
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/AleutianAI/aitestgen/services/testgen/locator"
)

// traitIndent is prepended to every line of a trait or ancestor method.
const traitIndent = "    "

// Option configures an Extractor.
type Option func(*Extractor)

// WithFS sets the filesystem sources are read from. Defaults to the OS.
func WithFS(fs afero.Fs) Option {
	return func(e *Extractor) {
		if fs != nil {
			e.fs = fs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Extractor slices method bodies out of source files.
//
// Thread Safety:
//
//	Extractor is safe for concurrent use. It holds no mutable state.
type Extractor struct {
	fs     afero.Fs
	logger *slog.Logger
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractTruncatedClass reconstructs a class containing only the located
// methods.
//
// Description:
//
//	The stub is assembled as:
//	  - every line of the class file up to and including the class
//	    declaration line, followed by "\n{"
//	  - "\n" plus the verbatim text of each direct method
//	  - for each trait or ancestor group, the header
//	    "\n\n    // Methods from trait: <Name>\n" and then "\n" plus the
//	    text of each of its methods indented by four spaces
//	  - a closing "\n}"
//
// Inputs:
//   - loc: Location metadata from the locator. Nil is treated as missing.
//
// Outputs:
//   - string: The stub, or "" when the class file cannot be read. An empty
//     result means there is nothing to extract; it is not an error.
func (e *Extractor) ExtractTruncatedClass(loc *locator.MethodLocation) string {
	if loc == nil {
		return ""
	}

	content, ok := e.read(loc.FilePath)
	if !ok {
		return ""
	}
	lines := strings.Split(content, "\n")

	var sb strings.Builder
	head := loc.ClassStartLine
	if head > len(lines) {
		head = len(lines)
	}
	if head < 0 {
		head = 0
	}
	sb.WriteString(strings.Join(lines[:head], "\n"))
	sb.WriteString("\n{")

	for _, m := range loc.Methods {
		sb.WriteString("\n")
		sb.WriteString(sliceLines(lines, m.StartLine, m.EndLine))
	}

	for _, group := range loc.Traits {
		sb.WriteString("\n\n" + traitIndent + "// Methods from trait: " + group.Name + "\n")

		groupContent, ok := e.read(group.FilePath)
		if !ok {
			e.logger.Warn("trait source unreadable",
				slog.String("trait", group.Name),
				slog.String("file", group.FilePath))
			continue
		}
		groupLines := strings.Split(groupContent, "\n")

		for _, m := range group.Methods {
			sb.WriteString("\n")
			sb.WriteString(indent(sliceLines(groupLines, m.StartLine, m.EndLine)))
		}
	}

	sb.WriteString("\n}")
	return sb.String()
}

// ExtractLines returns lines start through end of content, 1-based and
// inclusive, byte for byte. The range is clamped to the content.
func ExtractLines(content string, start, end int) string {
	return sliceLines(strings.Split(content, "\n"), start, end)
}

func (e *Extractor) read(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		e.logger.Debug("source file unreadable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return "", false
	}
	return string(data), true
}

func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func indent(block string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = traitIndent + line
	}
	return strings.Join(lines, "\n")
}
