// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package phpast extracts class, trait and method declarations from PHP
// source files using tree-sitter.
//
// The result is a static view of what a runtime reflection call would report:
// fully qualified type names, the line on which each declaration starts, the
// inclusive line span of every method, the parent class and the traits a type
// uses. Names are resolved against the file's namespace and use imports.
package phpast

import "strings"

// Kind identifies the flavour of a PHP type declaration.
type Kind string

const (
	KindClass     Kind = "class"
	KindTrait     Kind = "trait"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
)

// MethodDecl is a single method declaration.
//
// StartLine and EndLine are 1-based and inclusive. StartLine is the line of
// the first attribute group, or of the first modifier or the function
// keyword when there is none. Docblocks are not part of the span.
type MethodDecl struct {
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// TypeDecl is a class, trait, interface or enum declaration.
type TypeDecl struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	// FQCN is the fully qualified name without a leading backslash.
	FQCN string `json:"fqcn"`

	// StartLine is the 1-based line of the declaration keyword.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Parent is the resolved FQCN of the extended class, empty if none.
	Parent string `json:"parent,omitempty"`

	// Traits lists the resolved FQCNs of used traits in declaration order.
	Traits []string `json:"traits,omitempty"`

	Methods []MethodDecl `json:"methods,omitempty"`
}

// Method returns the method declared directly on the type.
// PHP method names are case-insensitive, so the lookup is too.
func (t *TypeDecl) Method(name string) (MethodDecl, bool) {
	for _, m := range t.Methods {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return MethodDecl{}, false
}

// File is the parsed view of one PHP source file.
type File struct {
	Path      string `json:"path"`
	Namespace string `json:"namespace,omitempty"`

	// Imports maps a lowercased alias to the imported FQCN.
	Imports map[string]string `json:"imports,omitempty"`

	Types []*TypeDecl `json:"types"`

	// HasErrors reports whether tree-sitter recovered from syntax errors.
	HasErrors bool `json:"has_errors,omitempty"`
}

// Type returns the declaration with the given fully qualified name.
func (f *File) Type(fqcn string) (*TypeDecl, bool) {
	fqcn = NormalizeName(fqcn)
	for _, t := range f.Types {
		if strings.EqualFold(t.FQCN, fqcn) {
			return t, true
		}
	}
	return nil, false
}

// NormalizeName strips surrounding whitespace and a leading backslash.
func NormalizeName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), `\`)
}

// ShortName returns the last segment of a namespaced name.
//
// Example:
//
//	ShortName(`App\Models\User`) // "User"
func ShortName(name string) string {
	name = NormalizeName(name)
	if idx := strings.LastIndex(name, `\`); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
